package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Env keys, read with the VISMEM_ prefix.
const (
	EnvProgress = "progress"
	EnvWords    = "words"
	EnvImages   = "images"
	EnvDB       = "db"
	EnvLogLevel = "log_level"
	EnvLogFile  = "log_file"
)

// Paths are the resolved file locations for a run.
type Paths struct {
	Config   string `json:"config" yaml:"config"`
	Progress string `json:"progress" yaml:"progress"`
	Words    string `json:"words" yaml:"words"`
	Images   string `json:"images" yaml:"images"`
	DB       string `json:"db" yaml:"db"`
	Log      string `json:"log" yaml:"log"`
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("VISMEM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	for _, key := range []string{EnvProgress, EnvWords, EnvImages, EnvDB, EnvLogLevel, EnvLogFile} {
		// BindEnv only errors without a key.
		_ = v.BindEnv(key)
	}
	return v
}

// ResolvePaths layers defaults, the config file and VISMEM_* variables.
func ResolvePaths(fc FileConfig) Paths {
	env := newEnv()
	return Paths{
		Config:   DefaultConfigPath(),
		Progress: pick(env.GetString(EnvProgress), fc.Paths.Progress, DefaultProgressPath()),
		Words:    pick(env.GetString(EnvWords), fc.Paths.Words, DefaultWordListPath()),
		Images:   pick(env.GetString(EnvImages), fc.Paths.Images, DefaultImageDir()),
		DB:       pick(env.GetString(EnvDB), fc.Paths.DB, DefaultDBPath()),
		Log:      pick(env.GetString(EnvLogFile), fc.Log.File, DefaultLogPath()),
	}
}

// ResolveLogLevel returns VISMEM_LOG_LEVEL, the config value or fallback.
func ResolveLogLevel(fc FileConfig, fallback string) string {
	return pick(newEnv().GetString(EnvLogLevel), fc.Log.Level, fallback)
}

func pick(env string, file *string, fallback string) string {
	if env = strings.TrimSpace(env); env != "" {
		return env
	}
	if file != nil && strings.TrimSpace(*file) != "" {
		return *file
	}
	return fallback
}
