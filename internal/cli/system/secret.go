package system

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/rhythm/internal/cli"
	"github.com/julianstephens/rhythm/internal/keyring"
	"github.com/julianstephens/rhythm/internal/storage/postgres"
)

// SecretSetCmd stores a credential in the OS keyring.
type SecretSetCmd struct {
	Name  string `arg:"" help:"Secret to store: remote-connection or advisory-api-key." enum:"remote-connection,advisory-api-key"`
	Value string `arg:"" optional:"" help:"Secret value. Prompted for when omitted."`
}

func (cmd *SecretSetCmd) Run(ctx *cli.Context) error {
	secret, err := keyring.ParseSecret(cmd.Name)
	if err != nil {
		return err
	}

	value := cmd.Value
	if value == "" {
		input := huh.NewInput().
			Title(fmt.Sprintf("Value for %s", secret)).
			EchoMode(huh.EchoModePassword).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
	}
	value = strings.TrimSpace(value)

	if secret == keyring.RemoteDSN {
		if err := postgres.ValidateConnString(value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			ctx.Println("⚠️  Warning: connection string contains an embedded password.")
			ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.Set(secret, value); err != nil {
		return err
	}
	ctx.Printf("✓ %s stored in OS keyring\n", secret)
	return nil
}

// SecretGetCmd shows a stored credential with its sensitive part masked.
type SecretGetCmd struct {
	Name string `arg:"" help:"Secret to show." enum:"remote-connection,advisory-api-key"`
}

func (cmd *SecretGetCmd) Run(ctx *cli.Context) error {
	secret, err := keyring.ParseSecret(cmd.Name)
	if err != nil {
		return err
	}
	value, err := keyring.Get(secret)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("no %s in keyring, use 'rhythm secret set %s' to store one", secret, secret)
	}
	if err != nil {
		return err
	}

	if secret == keyring.RemoteDSN {
		ctx.Println(maskPassword(value))
	} else {
		ctx.Println(maskKey(value))
	}
	return nil
}

type SecretDeleteCmd struct {
	Name string `arg:"" help:"Secret to delete." enum:"remote-connection,advisory-api-key"`
}

func (cmd *SecretDeleteCmd) Run(ctx *cli.Context) error {
	secret, err := keyring.ParseSecret(cmd.Name)
	if err != nil {
		return err
	}
	if err := keyring.Delete(secret); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s in keyring", secret)
		}
		return err
	}
	ctx.Printf("✓ %s deleted from OS keyring\n", secret)
	return nil
}

// SecretStatusCmd reports keyring availability and which secrets are stored.
type SecretStatusCmd struct{}

func (cmd *SecretStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")
	for _, secret := range keyring.Secrets {
		if _, err := keyring.Get(secret); err == nil {
			ctx.Printf("✓ %s is stored\n", secret)
		} else {
			ctx.Printf("ℹ %s is not stored\n", secret)
		}
	}
	return nil
}

// maskPassword hides the password of a URL or key=value connection string.
func maskPassword(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
			return strings.Replace(u.String(), "%2A%2A%2A%2A", "****", 1)
		}
		return connStr
	}

	fields := strings.Fields(connStr)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
