package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendIMAP  = "imap"
	BackendGmail = "gmail"
)

type Config struct {
	Mailbox   MailboxConfig   `mapstructure:"mailbox" yaml:"mailbox"`
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Gmail     GmailConfig     `mapstructure:"gmail" yaml:"gmail"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Translate TranslateConfig `mapstructure:"translate" yaml:"translate"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
}

type MailboxConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Mailbox            string `mapstructure:"mailbox" yaml:"mailbox"`
}

type GmailConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token" yaml:"refresh_token"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	TokenURL     string `mapstructure:"token_url" yaml:"token_url"`
}

type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// PasswordSource records where the password came from (env, config,
	// keyring). Informational, not persisted.
	PasswordSource string `mapstructure:"-" yaml:"-"`
}

type TranslateConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	TargetLang string `mapstructure:"target_lang" yaml:"target_lang"`
}

type ServeConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

func DefaultConfig() Config {
	return Config{
		Mailbox: MailboxConfig{
			Backend: BackendIMAP,
		},
		IMAP: IMAPConfig{
			Port:    993,
			TLS:     true,
			Mailbox: "INBOX",
		},
		Gmail: GmailConfig{
			Endpoint: "https://gmail.googleapis.com/gmail/v1",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Translate: TranslateConfig{
			TargetLang: "en",
		},
		Serve: ServeConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
	}
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.yaml"), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NFXCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

func Redact(cfg Config) Config {
	masked := cfg
	if masked.Auth.Password != "" {
		masked.Auth.Password = "****"
	}
	if masked.Gmail.ClientSecret != "" {
		masked.Gmail.ClientSecret = "****"
	}
	if masked.Gmail.RefreshToken != "" {
		masked.Gmail.RefreshToken = "****"
	}
	return masked
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("mailbox.backend", cfg.Mailbox.Backend)

	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.starttls", cfg.IMAP.StartTLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)
	v.SetDefault("imap.mailbox", cfg.IMAP.Mailbox)

	v.SetDefault("gmail.endpoint", cfg.Gmail.Endpoint)
	v.SetDefault("gmail.token_url", cfg.Gmail.TokenURL)

	v.SetDefault("translate.target_lang", cfg.Translate.TargetLang)

	v.SetDefault("serve.port", cfg.Serve.Port)
	v.SetDefault("serve.allowed_origins", cfg.Serve.AllowedOrigins)
}

// Validate checks that the selected mailbox backend has everything it needs.
// A failure here is a configuration problem, not a search failure.
func Validate(cfg Config) error {
	switch cfg.Mailbox.Backend {
	case BackendIMAP:
		return ValidateIMAP(cfg)
	case BackendGmail:
		return ValidateGmail(cfg)
	default:
		return fmt.Errorf("mailbox.backend must be %q or %q, got %q",
			BackendIMAP, BackendGmail, cfg.Mailbox.Backend)
	}
}

func ValidateIMAP(cfg Config) error {
	if cfg.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if cfg.Auth.Password == "" {
		return fmt.Errorf("auth.password is required")
	}
	return nil
}

func ValidateGmail(cfg Config) error {
	if cfg.Gmail.ClientID == "" {
		return fmt.Errorf("gmail.client_id is required")
	}
	if cfg.Gmail.ClientSecret == "" {
		return fmt.Errorf("gmail.client_secret is required")
	}
	if cfg.Gmail.RefreshToken == "" {
		return fmt.Errorf("gmail.refresh_token is required")
	}
	return nil
}
