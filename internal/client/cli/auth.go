package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gradesubmission/internal/client/storage"
	"github.com/iudanet/gradesubmission/internal/validation"
	pkgapi "github.com/iudanet/gradesubmission/pkg/api"
)

func (c *Cli) registerCommand() *cobra.Command {
	var username, passwordFile string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRegister(cmd.Context(), username, passwordFile)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted if empty)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "path to file containing the password")

	return cmd
}

func (c *Cli) runRegister(ctx context.Context, usernameFlag, passwordFile string) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.readUsername(usernameFlag)
	if err != nil {
		return err
	}

	password, err := c.readPassword(passwordFile, true)
	if err != nil {
		return err
	}

	// Те же правила, что и на сервере
	if messages := validation.ValidateCredentials(username, password); len(messages) > 0 {
		return fmt.Errorf("invalid credentials: %s", strings.Join(messages, "; "))
	}

	c.io.Println("Registering user...")

	creds := pkgapi.Credentials{Username: username, Password: password}
	if err := c.backend.API.Register(ctx, creds); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username: %s\n", username)
	c.io.Println("Run 'gradectl login' to start a session.")

	return nil
}

func (c *Cli) loginCommand() *cobra.Command {
	var username, passwordFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login and store the bearer token locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogin(cmd.Context(), username, passwordFile)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted if empty)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "path to file containing the password")

	return cmd
}

func (c *Cli) runLogin(ctx context.Context, usernameFlag, passwordFile string) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.readUsername(usernameFlag)
	if err != nil {
		return err
	}

	password, err := c.readPassword(passwordFile, false)
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")

	token, err := c.backend.API.Login(ctx, pkgapi.Credentials{Username: username, Password: password})
	if err != nil {
		return err
	}

	authData := &storage.AuthData{
		Username:  username,
		Token:     token,
		ServerURL: c.backend.API.BaseURL(),
		ExpiresAt: tokenExpiry(token),
	}
	if err := c.backend.Store.SaveAuth(ctx, authData); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", username)
	if authData.ExpiresAt > 0 {
		c.io.Printf("Token expires at: %s\n", formatExpiry(authData.ExpiresAt))
	}

	return nil
}

func (c *Cli) logoutCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return c.runLogoutAll(cmd.Context())
			}
			return c.runLogout(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove sessions for every server")

	return cmd
}

// runLogout удаляет токен локально; сервер stateless и отзыв не поддерживает
func (c *Cli) runLogout(ctx context.Context) error {
	serverURL := c.backend.API.BaseURL()

	auth, err := c.backend.Store.GetAuth(ctx, serverURL)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := c.backend.Store.DeleteAuth(ctx, serverURL); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	c.io.Printf("✓ Logged out: %s\n", auth.Username)
	return nil
}

func (c *Cli) runLogoutAll(ctx context.Context) error {
	sessions, err := c.backend.Store.ListAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		c.io.Println("Not logged in.")
		return nil
	}

	for _, auth := range sessions {
		if err := c.backend.Store.DeleteAuth(ctx, auth.ServerURL); err != nil {
			return fmt.Errorf("failed to delete session for %s: %w", auth.ServerURL, err)
		}
		c.io.Printf("✓ Logged out: %s (%s)\n", auth.Username, auth.ServerURL)
	}
	return nil
}

func (c *Cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the server associates with the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWhoami(cmd.Context())
		},
	}
}

func (c *Cli) runWhoami(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	username, err := c.backend.API.Me(ctx, auth.Token)
	if err != nil {
		return protected(err)
	}

	c.io.Println(username)
	return nil
}

func (c *Cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Printf("Server:  %s\n", c.backend.API.BaseURL())

	health, err := c.backend.API.Health(ctx)
	if err != nil {
		c.io.Printf("Health:  unreachable (%v)\n", err)
	} else {
		c.io.Printf("Health:  %s (version %s)\n", health.Status, health.Version)
	}

	auth, err := c.backend.Store.GetAuth(ctx, c.backend.API.BaseURL())
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		c.io.Println("Session: not logged in")
	case err != nil:
		return fmt.Errorf("failed to load session: %w", err)
	case auth.Expired(c.now()):
		c.io.Printf("Session: %s (expired at %s)\n", auth.Username, formatExpiry(auth.ExpiresAt))
	case auth.ExpiresAt == 0:
		c.io.Printf("Session: %s\n", auth.Username)
	default:
		c.io.Printf("Session: %s (expires at %s)\n", auth.Username, formatExpiry(auth.ExpiresAt))
	}

	return nil
}

func formatExpiry(unix int64) string {
	return time.Unix(unix, 0).Local().Format(time.RFC3339)
}
