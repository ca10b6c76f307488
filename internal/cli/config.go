package cli

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (WORM_MODE, WORM_FORMAT, ...).
const EnvPrefix = "WORM"

// loadConfig binds flags, environment and an optional config file into v.
//
// Precedence: explicitly set flag > WORM_* environment > config file > flag
// default. With no explicit path, worm.yaml in the working directory is used
// when present and silently skipped otherwise.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, path string) error {
	for _, name := range []string{"format", "mode", "verbose"} {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return err
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("worm")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
