package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Secrets is the environment-specific secret store: a flat TOML file in the
// layout hosted notebook platforms use (MISTRAL_API_KEY = "...").
type Secrets struct {
	v *viper.Viper
}

// Get returns the value stored under key, or "" when the store is empty.
func (s Secrets) Get(key string) string {
	if s.v == nil {
		return ""
	}
	return s.v.GetString(key)
}

// LoadSecrets reads the secret store. An empty path searches ./secrets.toml
// and ./.streamlit/secrets.toml; a missing store yields an empty Secrets.
func LoadSecrets(path string) (Secrets, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("secrets")
		v.AddConfigPath(".")
		v.AddConfigPath("./.streamlit")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return Secrets{}, nil
		}
		if path != "" {
			return Secrets{}, fmt.Errorf("reading secrets %s: %w", path, err)
		}
		return Secrets{}, nil
	}
	return Secrets{v: v}, nil
}
