// Command fsyctl is a terminal client for the FSY portal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"fsyportal/internal/portalclient"
)

var (
	serverURL string
	email     string
	password  string
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fsyctl",
	Short: "Terminal client for the FSY attendance portal",
	Long: `fsyctl logs in as a counselor and works with the portal API: list events,
view a group roster, search participants and take attendance.

Credentials default to FSY_EMAIL and FSY_PASSWORD.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FSY_SERVER", "http://localhost:8081"), "portal server URL")
	rootCmd.PersistentFlags().StringVar(&email, "email", os.Getenv("FSY_EMAIL"), "login email")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("FSY_PASSWORD"), "login password")
}

// login returns a client holding a fresh session and the logged-in user.
func login(ctx context.Context) (*portalclient.Client, portalclient.LoginUser, error) {
	if email == "" || password == "" {
		return nil, portalclient.LoginUser{}, errors.New("--email and --password (or FSY_EMAIL/FSY_PASSWORD) are required")
	}
	client, err := portalclient.New(serverURL)
	if err != nil {
		return nil, portalclient.LoginUser{}, err
	}
	user, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, portalclient.LoginUser{}, fmt.Errorf("login: %w", err)
	}
	return client, user, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
