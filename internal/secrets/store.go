// Package secrets stores mailbox credentials in the OS keyring, falling
// back to an encrypted file on headless machines.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"nfxcode/internal/config"
)

const (
	keyringPasswordEnv = "NFXCODE_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential
	keyringBackendEnv  = "NFXCODE_KEYRING_BACKEND"  //nolint:gosec // env var name, not a credential
)

var (
	ErrSecretNotFound        = errors.New("secret not found")
	errMissingSecretKey      = errors.New("missing secret key")
	errMissingAccount        = errors.New("missing account name")
	errMissingValue          = errors.New("missing secret value")
	errNoTTY                 = errors.New("no TTY available for keyring file backend password prompt")
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errKeyringTimeout        = errors.New("keyring connection timed out")
	openKeyringFunc          = openKeyring
	keyringOpenFunc          = keyring.Open
)

func keyringItem(key string, data []byte) keyring.Item {
	return keyring.Item{
		Key:   key,
		Data:  data,
		Label: config.AppName,
	}
}

// resolveBackend reads the backend choice from the environment; unset means
// auto-detection by the keyring library.
func resolveBackend() (string, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(keyringBackendEnv)))
	switch v {
	case "", "auto", "keychain", "file":
		if v == "" {
			v = "auto"
		}
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q (expected auto, keychain, or file)", errInvalidKeyringBackend, v)
	}
}

func allowedBackends(backend string) []keyring.BackendType {
	switch backend {
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}
	case "file":
		return []keyring.BackendType{keyring.FileBackend}
	default:
		return nil
	}
}

func fileKeyringPasswordFuncFrom(password string, passwordSet bool, isTTY bool) keyring.PromptFunc {
	// Treat "set to empty string" as intentional; empty passphrase is valid.
	if passwordSet {
		return keyring.FixedStringPrompt(password)
	}

	if isTTY {
		return keyring.TerminalPrompt
	}

	return func(_ string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
	}
}

func fileKeyringPasswordFunc() keyring.PromptFunc {
	password, passwordSet := os.LookupEnv(keyringPasswordEnv)
	return fileKeyringPasswordFuncFrom(password, passwordSet, term.IsTerminal(int(os.Stdin.Fd())))
}

// keyringOpenTimeout is the maximum time to wait for keyring.Open() to
// complete. On headless Linux, D-Bus SecretService can hang indefinitely if
// gnome-keyring is installed but not running.
const keyringOpenTimeout = 5 * time.Second

func openKeyring() (keyring.Keyring, error) {
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, fmt.Errorf("ensure keyring dir: %w", err)
	}

	backend, err := resolveBackend()
	if err != nil {
		return nil, err
	}

	backends := allowedBackends(backend)
	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	// On Linux with "auto" backend and no D-Bus session, force file backend.
	if runtime.GOOS == "linux" && backend == "auto" && dbusAddr == "" {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	cfg := keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: false,
		AllowedBackends:          backends,
		FileDir:                  keyringDir,
		FilePasswordFunc:         fileKeyringPasswordFunc(),
	}

	if runtime.GOOS == "linux" && backend == "auto" && dbusAddr != "" {
		return openKeyringWithTimeout(cfg, keyringOpenTimeout)
	}

	ring, err := keyringOpenFunc(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return ring, nil
}

type keyringResult struct {
	ring keyring.Keyring
	err  error
}

// openKeyringWithTimeout wraps keyring.Open with a timeout to prevent
// indefinite hangs.
func openKeyringWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	ch := make(chan keyringResult, 1)

	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- keyringResult{ring, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}

		return res.ring, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v (D-Bus SecretService may be unresponsive); "+
			"set %s=file and %s=<password> to use encrypted file storage instead",
			errKeyringTimeout, timeout, keyringBackendEnv, keyringPasswordEnv)
	}
}

func SetSecret(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingSecretKey
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}

	if err := ring.Set(keyringItem(key, value)); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	return nil
}

func GetSecret(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errMissingSecretKey
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return nil, err
	}

	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("read secret: %w", err)
	}

	return item.Data, nil
}

// SetPassword stores the IMAP account password.
func SetPassword(username, password string) error {
	user := normalize(username)
	if user == "" {
		return errMissingAccount
	}
	if password == "" {
		return errMissingValue
	}

	return SetSecret(passwordKey(user), []byte(password))
}

// GetPassword reads the IMAP account password.
func GetPassword(username string) (string, error) {
	user := normalize(username)
	if user == "" {
		return "", errMissingAccount
	}

	data, err := GetSecret(passwordKey(user))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// SetToken stores the Gmail OAuth refresh token for an account.
func SetToken(account, token string) error {
	acct := normalize(account)
	if acct == "" {
		return errMissingAccount
	}
	if token == "" {
		return errMissingValue
	}

	return SetSecret(tokenKey(acct), []byte(token))
}

// GetToken reads the Gmail OAuth refresh token for an account.
func GetToken(account string) (string, error) {
	acct := normalize(account)
	if acct == "" {
		return "", errMissingAccount
	}

	data, err := GetSecret(tokenKey(acct))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func passwordKey(username string) string {
	return fmt.Sprintf("auth:password:%s", username)
}

func tokenKey(account string) string {
	return fmt.Sprintf("gmail:refresh_token:%s", account)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
