// Package config loads the tool configuration (tool.yml, TOOL_ env vars).
package config

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	Log struct {
		Level string `default:"info"`
	}
	Site struct {
		Dir      string `default:"site" usage:"Directory the web build writes its output to"`
		Artifact string `default:"assimilation" usage:"Base name for the generated artifacts"`
	}
	Publish struct {
		Remote        string `default:"origin" usage:"Git remote the site branch is pushed to"`
		Branch        string `default:"gh-pages" usage:"Branch the site directory is published to"`
		SourceBranch  string `default:"master" usage:"Only publish when this branch triggered the build"`
		CommitMessage string `default:"Deploy site" usage:"Commit message for publish commits"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "TOOL",
		SkipFlags:          true,
		AllowUnknownFields: true,
		Files:              []string{"tool.yml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yml": aconfigyaml.New(),
		},
	})
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg, loader := Loader()
	err := loader.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Site.Dir == "" {
		return eris.New("site.dir must not be empty")
	}

	if cfg.Publish.Branch == cfg.Publish.SourceBranch {
		return eris.Errorf("publish.branch and publish.sourceBranch are both %s", cfg.Publish.Branch)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
