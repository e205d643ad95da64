package cli

import (
	"errors"
	"os"

	"nfxcode/internal/config"
	"nfxcode/internal/secrets"
)

// loadConfig loads the effective configuration, resolving secrets in order:
// environment, config file, keyring.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if cfg.Mailbox.Backend == config.BackendGmail {
		return resolveGmailToken(cfg)
	}
	return resolvePassword(cfg)
}

func resolvePassword(cfg config.Config) (config.Config, error) {
	if _, ok := os.LookupEnv("NFXCODE_AUTH_PASSWORD"); ok {
		cfg.Auth.PasswordSource = "env"
		return cfg, nil
	}

	if cfg.Auth.Password != "" {
		cfg.Auth.PasswordSource = "config"
		return cfg, nil
	}

	if cfg.Auth.Username == "" {
		return cfg, nil
	}

	password, err := secrets.GetPassword(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return cfg, nil
		}
		return cfg, err
	}

	cfg.Auth.Password = password
	cfg.Auth.PasswordSource = "keyring"
	return cfg, nil
}

func resolveGmailToken(cfg config.Config) (config.Config, error) {
	if cfg.Gmail.RefreshToken != "" {
		return cfg, nil
	}

	if cfg.Auth.Username == "" {
		return cfg, nil
	}

	token, err := secrets.GetToken(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return cfg, nil
		}
		return cfg, err
	}

	cfg.Gmail.RefreshToken = token
	return cfg, nil
}
