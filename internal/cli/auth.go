package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nfxcode/internal/config"
	"nfxcode/internal/secrets"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication and config setup",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		backend string

		imapHost     string
		imapPort     int
		imapTLS      bool
		imapStartTLS bool
		imapInsecure bool
		imapMailbox  string

		username string
		password string

		gmailClientID     string
		gmailClientSecret string
		gmailRefreshToken string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store mailbox credentials and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("backend") {
				cfg.Mailbox.Backend = backend
			}

			if cmd.Flags().Changed("imap-host") {
				cfg.IMAP.Host = imapHost
			}
			if cmd.Flags().Changed("imap-port") {
				cfg.IMAP.Port = imapPort
			}
			if cmd.Flags().Changed("imap-tls") {
				cfg.IMAP.TLS = imapTLS
			}
			if cmd.Flags().Changed("imap-starttls") {
				cfg.IMAP.StartTLS = imapStartTLS
			}
			if cmd.Flags().Changed("imap-insecure") {
				cfg.IMAP.InsecureSkipVerify = imapInsecure
			}
			if cmd.Flags().Changed("imap-mailbox") {
				cfg.IMAP.Mailbox = imapMailbox
			}

			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}

			if cmd.Flags().Changed("gmail-client-id") {
				cfg.Gmail.ClientID = gmailClientID
			}
			if cmd.Flags().Changed("gmail-client-secret") {
				cfg.Gmail.ClientSecret = gmailClientSecret
			}

			// Secrets go to the keyring, never to the config file.
			switch cfg.Mailbox.Backend {
			case config.BackendIMAP:
				if err := storePassword(cmd, cfg.Auth.Username, password); err != nil {
					return err
				}
			case config.BackendGmail:
				if cmd.Flags().Changed("gmail-refresh-token") {
					if err := secrets.SetToken(cfg.Auth.Username, gmailRefreshToken); err != nil {
						return err
					}
				}
			}

			if err := validateWithSecrets(cfg); err != nil {
				return err
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Mailbox backend (imap or gmail)")

	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP host")
	cmd.Flags().IntVar(&imapPort, "imap-port", 0, "IMAP port")
	cmd.Flags().BoolVar(&imapTLS, "imap-tls", false, "Use IMAP TLS")
	cmd.Flags().BoolVar(&imapStartTLS, "imap-starttls", false, "Use IMAP STARTTLS")
	cmd.Flags().BoolVar(&imapInsecure, "imap-insecure", false, "Skip IMAP TLS verification")
	cmd.Flags().StringVar(&imapMailbox, "imap-mailbox", "", "Mailbox to search (default INBOX)")

	cmd.Flags().StringVar(&username, "username", "", "Mailbox account address")
	cmd.Flags().StringVar(&password, "password", "", "Password or app password (prompted when omitted)")

	cmd.Flags().StringVar(&gmailClientID, "gmail-client-id", "", "Gmail OAuth client ID")
	cmd.Flags().StringVar(&gmailClientSecret, "gmail-client-secret", "", "Gmail OAuth client secret")
	cmd.Flags().StringVar(&gmailRefreshToken, "gmail-refresh-token", "", "Gmail OAuth refresh token")

	return cmd
}

// storePassword saves the IMAP password to the keyring, prompting on a TTY
// when the flag was omitted.
func storePassword(cmd *cobra.Command, username, password string) error {
	if username == "" {
		return nil
	}

	if !cmd.Flags().Changed("password") {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s: ", username)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(string(raw))
	}

	if password == "" {
		return nil
	}
	return secrets.SetPassword(username, password)
}

// validateWithSecrets checks the effective configuration, pulling stored
// secrets back in so validation sees what a later run will see.
func validateWithSecrets(cfg config.Config) error {
	check := cfg

	switch cfg.Mailbox.Backend {
	case config.BackendIMAP:
		if check.Auth.Password == "" && check.Auth.Username != "" {
			if pw, err := secrets.GetPassword(check.Auth.Username); err == nil {
				check.Auth.Password = pw
			} else if !errors.Is(err, secrets.ErrSecretNotFound) {
				return err
			}
		}
	case config.BackendGmail:
		if check.Gmail.RefreshToken == "" && check.Auth.Username != "" {
			if tok, err := secrets.GetToken(check.Auth.Username); err == nil {
				check.Gmail.RefreshToken = tok
			} else if !errors.Is(err, secrets.ErrSecretNotFound) {
				return err
			}
		}
	}

	return config.Validate(check)
}
