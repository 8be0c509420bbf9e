package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MONEYBOARD_SERVER_ADDR.
const EnvPrefix = "MONEYBOARD"

// Config holds application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	SimpleFIN  SimpleFINConfig
	LLM        LLMConfig
	Classifier ClassifierConfig
	Sync       SyncConfig
	Log        LogConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SimpleFINConfig holds aggregator client settings.
type SimpleFINConfig struct {
	Timeout time.Duration
}

// LLMConfig holds provider settings.
type LLMConfig struct {
	Provider     string
	APIKeyEnv    string `mapstructure:"api_key_env"`
	APIKey       string `mapstructure:"api_key"`
	Model        string
	Timeout      time.Duration
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// ClassifierConfig points at the external classifier scripts.
type ClassifierConfig struct {
	Python          string
	ScriptDir       string        `mapstructure:"script_dir"`
	ModelDir        string        `mapstructure:"model_dir"`
	TrainTimeout    time.Duration `mapstructure:"train_timeout"`
	ClassifyTimeout time.Duration `mapstructure:"classify_timeout"`
}

// SyncConfig controls background syncing. An empty schedule disables it.
type SyncConfig struct {
	Schedule string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from .env, file and env. Env var overrides use prefix MONEYBOARD_.
func Load() (Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "moneyboard"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "moneyboard")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("database.path", filepath.Join(dataDir, "moneyboard.db"))
	v.SetDefault("simplefin.timeout", 60*time.Second)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.query_timeout", 10*time.Second)
	v.SetDefault("classifier.python", "python3")
	v.SetDefault("classifier.script_dir", filepath.Join(dataDir, "classifier"))
	v.SetDefault("classifier.model_dir", filepath.Join(dataDir, "model"))
	v.SetDefault("classifier.train_timeout", 30*time.Minute)
	v.SetDefault("classifier.classify_timeout", 5*time.Minute)
	v.SetDefault("sync.schedule", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Path returns the file Save writes to.
func Path() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "moneyboard", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
// The API key is never written; keep it in the environment or the key store.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.allowed_origin", cfg.Server.AllowedOrigin)
	v.Set("database.path", cfg.Database.Path)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("classifier.python", cfg.Classifier.Python)
	v.Set("classifier.script_dir", cfg.Classifier.ScriptDir)
	v.Set("classifier.model_dir", cfg.Classifier.ModelDir)
	v.Set("sync.schedule", cfg.Sync.Schedule)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
