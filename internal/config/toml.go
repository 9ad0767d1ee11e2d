package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Quiz  QuizConfig  `toml:"quiz"`
	Paths PathsConfig `toml:"paths"`
	Log   LogConfig   `toml:"log"`
}

// QuizConfig maps quiz defaults. Counts are checked against the modality
// bound when a session starts.
type QuizConfig struct {
	Duration       *float64 `toml:"duration" validate:"omitempty,gt=0,lte=3600"`
	Initial        *int     `toml:"initial" validate:"omitempty,min=1"`
	Final          *int     `toml:"final" validate:"omitempty,min=1"`
	WordFilter     *string  `toml:"word-filter" validate:"omitempty,oneof=all ascii short"`
	LetterSpacing  *int     `toml:"letter-spacing" validate:"omitempty,min=0"`
	ImageSpacing   *int     `toml:"image-spacing" validate:"omitempty,min=0"`
	ThumbnailCells *int     `toml:"thumbnail-cells" validate:"omitempty,min=4,max=40"`
}

// PathsConfig overrides default file locations.
type PathsConfig struct {
	Progress *string `toml:"progress"`
	Words    *string `toml:"words"`
	Images   *string `toml:"images"`
	DB       *string `toml:"db"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File  *string `toml:"file"`
}

var validate = validator.New()

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Validate checks value ranges of the set fields.
func (c FileConfig) Validate() error {
	var fieldErrs validator.ValidationErrors
	for _, section := range []any{c.Quiz, c.Log} {
		err := validate.Struct(section)
		if err == nil {
			continue
		}
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config value %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Quiz.Initial != nil && c.Quiz.Final != nil && *c.Quiz.Final < *c.Quiz.Initial {
		return fmt.Errorf("invalid config value QuizConfig.Final: must be >= initial")
	}
	return nil
}

// Template returns a commented config file with every setting disabled.
func Template(d Defaults) string {
	return fmt.Sprintf(`# vismem configuration
# Uncomment a value to enable it. CLI flags override config values,
# VISMEM_* environment variables override [paths] and [log].

[quiz]
# duration = %.1f          # Seconds the stimuli stay on screen
# initial = %d               # Stimuli to memorise
# final = %d                 # Candidates shown for recall (>= initial)
# word-filter = "all"       # all, ascii or short
# letter-spacing = %d       # Minimum separation for letters and words (pixels)
# image-spacing = %d       # Minimum separation for images (pixels)
# thumbnail-cells = %d      # Thumbnail width in the recall grid (cells)

[paths]
# progress = %q
# words = %q
# images = %q
# db = %q

[log]
# level = "info"           # debug, info, warn or error
# file = %q
`,
		d.Duration,
		d.Initial,
		d.Final,
		d.LetterSpacing,
		d.ImageSpacing,
		d.ThumbnailCells,
		DefaultProgressPath(),
		DefaultWordListPath(),
		DefaultImageDir(),
		DefaultDBPath(),
		DefaultLogPath(),
	)
}

// Defaults holds the built-in quiz values shown in the template.
type Defaults struct {
	Duration       float64
	Initial        int
	Final          int
	LetterSpacing  int
	ImageSpacing   int
	ThumbnailCells int
}
