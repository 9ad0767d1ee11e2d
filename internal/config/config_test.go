package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Quiz.Duration != nil || cfg.Paths.Words != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `
[quiz]
duration = 2.5
initial = 4
final = 8
word-filter = "short"

[paths]
words = "/tmp/words.txt"

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Quiz.Duration == nil || *cfg.Quiz.Duration != 2.5 {
		t.Fatalf("unexpected duration: %v", cfg.Quiz.Duration)
	}
	if *cfg.Quiz.Initial != 4 || *cfg.Quiz.Final != 8 || *cfg.Quiz.WordFilter != "short" {
		t.Fatalf("unexpected quiz config: %+v", cfg.Quiz)
	}
	if *cfg.Paths.Words != "/tmp/words.txt" || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected paths/log: %+v %+v", cfg.Paths, cfg.Log)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"negative duration": "[quiz]\nduration = -1\n",
		"zero initial":      "[quiz]\ninitial = 0\n",
		"final below":       "[quiz]\ninitial = 5\nfinal = 3\n",
		"bad filter":        "[quiz]\nword-filter = \"latin\"\n",
		"bad level":         "[log]\nlevel = \"loud\"\n",
		"unknown key":       "[quiz]\nwords = 3\n",
		"bad toml":          "[quiz\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestTemplateDecodesToEmptyConfig(t *testing.T) {
	tmpl := Template(Defaults{Duration: 1, Initial: 3, Final: 5, LetterSpacing: 50, ImageSpacing: 150, ThumbnailCells: 12})
	var cfg FileConfig
	if _, err := toml.Decode(tmpl, &cfg); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if cfg.Quiz.Initial != nil {
		t.Fatalf("expected template values to be commented out")
	}
	if !strings.Contains(tmpl, "# initial = 3") {
		t.Fatalf("expected defaults in template:\n%s", tmpl)
	}
}

func TestResolvePathsLayering(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CONFIG_HOME", "/conf")
	t.Setenv("VISMEM_PROGRESS", "")
	t.Setenv("VISMEM_WORDS", "")
	t.Setenv("VISMEM_IMAGES", "/env/images")
	t.Setenv("VISMEM_DB", "")
	t.Setenv("VISMEM_LOG_FILE", "")

	words := "/file/words.txt"
	images := "/file/images"
	paths := ResolvePaths(FileConfig{Paths: PathsConfig{Words: &words, Images: &images}})

	if paths.Progress != filepath.Join("/data", "vismem", "progress.json") {
		t.Fatalf("unexpected progress path: %s", paths.Progress)
	}
	if paths.Words != words {
		t.Fatalf("expected config words path, got %s", paths.Words)
	}
	if paths.Images != "/env/images" {
		t.Fatalf("expected env images path, got %s", paths.Images)
	}
	if paths.DB != filepath.Join("/data", "vismem", "vismem.db") {
		t.Fatalf("unexpected db path: %s", paths.DB)
	}
	if paths.Config != filepath.Join("/conf", "vismem", "config.toml") {
		t.Fatalf("unexpected config path: %s", paths.Config)
	}
}

func TestResolveLogLevel(t *testing.T) {
	t.Setenv("VISMEM_LOG_LEVEL", "")
	level := "warn"
	if got := ResolveLogLevel(FileConfig{}, "info"); got != "info" {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := ResolveLogLevel(FileConfig{Log: LogConfig{Level: &level}}, "info"); got != "warn" {
		t.Fatalf("expected config level, got %s", got)
	}
	t.Setenv("VISMEM_LOG_LEVEL", "debug")
	if got := ResolveLogLevel(FileConfig{Log: LogConfig{Level: &level}}, "info"); got != "debug" {
		t.Fatalf("expected env level, got %s", got)
	}
}
