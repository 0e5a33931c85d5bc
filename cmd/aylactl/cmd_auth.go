package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/api"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/session"
)

var (
	loginEmail    string
	loginPassword string

	tokenSubject string
	tokenTTL     time.Duration
)

// loginCmd signs in with email and password
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the Ayla cloud",
	Long: `Sign in with an email address and password and store the session.

Credentials default to ayla.email and ayla.password from the config file
(or AYLA_EMAIL and AYLA_PASSWORD). The password is read from stdin when it
is not configured anywhere.`,
	Args: cobra.NoArgs,
	RunE: local(runLogin),
}

// logoutCmd signs out and clears the stored session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session and cache",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runLogout),
}

// tokenCmd mints a bearer token for the local API
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the aylad REST API",
	Long: `Issue an HS256 bearer token signed with api.jwt_secret.

The token is accepted by every aylad API route until it expires.`,
	Args: cobra.NoArgs,
	RunE: local(runToken),
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (default ayla.email)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (default ayla.password)")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "aylactl", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", api.DefaultTokenTTL, "token lifetime")
}

func runLogin(ctx context.Context, a *app, _ []string) error {
	email := loginEmail
	if email == "" {
		email = a.cfg.Ayla.Email
	}
	password := loginPassword
	if password == "" {
		password = a.cfg.Ayla.Password
	}
	if email == "" {
		return fmt.Errorf("an email is required (--email or ayla.email)")
	}
	if password == "" {
		var err error
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	auth, err := a.session.SignIn(ctx, session.UsernameAuthProvider{Email: email, Password: password})
	if err != nil {
		return err
	}
	a.out.message("signed in as %s (session %q, expires %s)",
		email, a.cfg.Ayla.SessionName, auth.ExpiresAt().Local().Format(time.RFC1123))
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	a.out.message("signed out of session %q", a.cfg.Ayla.SessionName)
	return nil
}

func runToken(_ context.Context, a *app, _ []string) error {
	if a.cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is not configured; the API accepts unauthenticated requests")
	}
	token, err := api.IssueToken(tokenSubject, a.cfg.API.JWTSecret, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out.w, token)
	return nil
}
