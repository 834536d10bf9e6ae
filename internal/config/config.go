// Package config handles loading and validating the jarvis configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for the jarvis daemon.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transports  TransportsConfig  `mapstructure:"transports"`
	Environment EnvironmentConfig `mapstructure:"environment"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	MediaPlayer MediaPlayerConfig `mapstructure:"media_player"`
	Video       VideoConfig       `mapstructure:"video"`
	STT         STTConfig         `mapstructure:"stt"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Logging     LoggingConfig     `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Broker     string `mapstructure:"broker"`
	Topic      string `mapstructure:"topic"`
	ReplyTopic string `mapstructure:"reply_topic"`
	ClientID   string `mapstructure:"client_id"`
}

// EnvironmentConfig selects the capability profile and where secrets live.
type EnvironmentConfig struct {
	Mode        string `mapstructure:"mode"` // "auto", "desktop" or "cloud"
	EnvFile     string `mapstructure:"env_file"`
	SecretsFile string `mapstructure:"secrets_file"`
}

// AssistantConfig configures the remote chat-completions backend.
type AssistantConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Persona     string        `mapstructure:"persona"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Proxy       string        `mapstructure:"proxy"` // optional SOCKS5 host:port
}

// MediaPlayerConfig describes the desktop music player driven by automation.
type MediaPlayerConfig struct {
	Name        string        `mapstructure:"name"`
	Path        string        `mapstructure:"path"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	StepDelay   time.Duration `mapstructure:"step_delay"`
	KeyInterval time.Duration `mapstructure:"key_interval"`
}

// VideoConfig describes the video site used for playback and navigation.
type VideoConfig struct {
	Name      string `mapstructure:"name"`
	SearchURL string `mapstructure:"search_url"`
	WatchURL  string `mapstructure:"watch_url"`
	HomeURL   string `mapstructure:"home_url"`
}

// STTConfig configures the Whisper-compatible speech recognition endpoint.
type STTConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled     bool            `mapstructure:"enabled"`
	Backend     string          `mapstructure:"backend"` // "piper" or "http"
	Timeout     time.Duration   `mapstructure:"timeout"`
	ArtifactDir string          `mapstructure:"artifact_dir"`
	Piper       PiperConfig     `mapstructure:"piper"`
	HTTP        SpeechAPIConfig `mapstructure:"http"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string            `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices   map[string]string `mapstructure:"voices"`   // ISO-639-1 language code -> Piper voice model name
	Language string            `mapstructure:"language"`
}

// SpeechAPIConfig holds settings for an OpenAI-compatible /audio/speech endpoint.
type SpeechAPIConfig struct {
	Endpoint string `mapstructure:"endpoint"` // API base URL, e.g. https://api.openai.com/v1/
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Flags registers the command-line overrides shared by every subcommand.
// Bind them with Load so flag values take precedence over file and env.
func Flags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to config file (e.g. configs/jarvis.yaml)")
	flags.String("mode", "", "environment mode: auto, desktop or cloud")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or text")
	flags.String("env-file", "", "dotenv file loaded before resolving secrets")
}

var flagKeys = map[string]string{
	"mode":       "environment.mode",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"env-file":   "environment.env_file",
}

// Load reads the configuration from file, environment variables, flags and defaults.
// If flags carries a non-empty --config it is used directly; otherwise the standard
// search order applies: ./jarvis.yaml, ./configs/jarvis.yaml, /etc/jarvis/jarvis.yaml.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("jarvis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/jarvis")
	}

	// Environment variables: JARVIS_ASSISTANT_MODEL, JARVIS_ENVIRONMENT_MODE, etc.
	v.SetEnvPrefix("JARVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nothing is logged here: the logger is set up from the result.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// The env file feeds AutomaticEnv, so it must be loaded before Unmarshal.
	if err := loadDotEnv(v.GetString("environment.env_file")); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	secrets, err := LoadSecrets(cfg.Environment.SecretsFile)
	if err != nil {
		return nil, err
	}
	cfg.resolveCredentials(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic", "jarvis/command")
	v.SetDefault("transports.mqtt.reply_topic", "jarvis/response")
	v.SetDefault("transports.mqtt.client_id", "jarvis")
	v.SetDefault("environment.mode", "auto")
	v.SetDefault("environment.env_file", ".env")
	v.SetDefault("environment.secrets_file", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.proxy", "")
	v.SetDefault("assistant.base_url", "https://api.mistral.ai/v1/")
	v.SetDefault("assistant.model", "mistral-tiny")
	v.SetDefault("assistant.persona", "You are Jarvis, a futuristic AI assistant.")
	v.SetDefault("assistant.temperature", 0.1)
	v.SetDefault("assistant.timeout", 30*time.Second)
	v.SetDefault("media_player.name", "Spotify")
	v.SetDefault("media_player.path", "")
	v.SetDefault("media_player.settle_delay", 5*time.Second)
	v.SetDefault("media_player.step_delay", 2*time.Second)
	v.SetDefault("media_player.key_interval", 200*time.Millisecond)
	v.SetDefault("video.name", "YouTube")
	v.SetDefault("video.search_url", "https://www.youtube.com/results?search_query=")
	v.SetDefault("video.watch_url", "https://www.youtube.com/watch?v=")
	v.SetDefault("video.home_url", "https://youtube.com")
	v.SetDefault("stt.endpoint", "")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.timeout", 30*time.Second)
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.backend", "piper")
	v.SetDefault("tts.timeout", 20*time.Second)
	v.SetDefault("tts.artifact_dir", "")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.language", "en")
	v.SetDefault("tts.http.endpoint", "")
	v.SetDefault("tts.http.api_key", "")
	v.SetDefault("tts.http.model", "tts-1")
	v.SetDefault("tts.http.voice", "alloy")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects values that cannot be recovered from at call time.
// Missing credentials are deliberately not checked here.
func (c *Config) Validate() error {
	switch c.Environment.Mode {
	case "auto", "desktop", "cloud":
	default:
		return fmt.Errorf("invalid environment.mode %q (want auto, desktop or cloud)", c.Environment.Mode)
	}
	switch c.TTS.Backend {
	case "piper", "http":
	default:
		return fmt.Errorf("invalid tts.backend %q (want piper or http)", c.TTS.Backend)
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		return fmt.Errorf("assistant.temperature %.2f out of range [0, 2]", c.Assistant.Temperature)
	}
	return nil
}

// resolveCredentials fills the API key and media-player path. An explicit
// config value wins (after ${VAR} expansion), then the secret store, then
// the process environment.
func (c *Config) resolveCredentials(secrets Secrets) {
	c.Assistant.APIKey = firstNonEmpty(
		resolveEnvRef(c.Assistant.APIKey),
		secrets.Get("MISTRAL_API_KEY"),
		os.Getenv("MISTRAL_API_KEY"),
	)
	c.MediaPlayer.Path = firstNonEmpty(
		resolveEnvRef(c.MediaPlayer.Path),
		secrets.Get("SPOTIFY_PATH"),
		os.Getenv("SPOTIFY_PATH"),
	)
	c.STT.APIKey = resolveEnvRef(c.STT.APIKey)
	c.TTS.HTTP.APIKey = resolveEnvRef(c.TTS.HTTP.APIKey)
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
