package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/include"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides: REDI_EAGER_DATABASE_URI.
	EnvPrefix = "REDI_EAGER"
	// FileName is the config file looked up without --config, as
	// redi-eager.yaml in the working directory or $HOME/.redi-eager.
	FileName = "redi-eager"

	ConfigFlag = "config"
)

// DefineFlags registers one flag per configuration key on fs, named
// after the key.
func DefineFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFlag, "", "Path to a config file")
	fs.String("database.uri", "", "Database URI (memory://, sqlite://, mysql://, postgres://, mongodb://)")
	fs.Int("database.inq_limit", 0, "Maximum keys per batched include query (0 = backend limit)")
	fs.Int("include.max_concurrency", include.DefaultConcurrency, "Maximum concurrent include queries per level")
	fs.String("log.level", "info", "Log level (debug, info, warn, error, none)")
	fs.String("models.path", "", "JSON file with model definitions")
	fs.Bool("metrics.enabled", false, "Print include metrics after each command")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.uri", "memory://")
	v.SetDefault("database.inq_limit", 0)
	v.SetDefault("include.max_concurrency", include.DefaultConcurrency)
	v.SetDefault("log.level", "info")
	v.SetDefault("models.path", "")
	v.SetDefault("metrics.enabled", false)
}

// Load reads the configuration with the following precedence:
//  1. flags changed on fs
//  2. environment variables
//  3. config file
//  4. defaults
//
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath := ""
	if fs != nil {
		cfgPath, _ = fs.GetString(ConfigFlag)
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.redi-eager")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		bindChangedFlags(v, fs)
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindChangedFlags copies only flags set on the command line, so unset
// flag defaults never mask env or file values.
func bindChangedFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == ConfigFlag {
			return
		}
		switch f.Value.Type() {
		case "int":
			val, _ := fs.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := fs.GetBool(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}
