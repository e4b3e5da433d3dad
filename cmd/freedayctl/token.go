package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lg/free-day-go-api/internal/session"
	"lg/free-day-go-api/internal/store"
)

// newTokenCmd creates users the same way the OAuth callback does: accounts
// are keyed by Google id.
func newTokenCmd() *cobra.Command {
	var (
		driver, dsn           string
		googleID, email, name string
		secret                string
		ttlHours              int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create (or find) a user and print a session token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			if ttlHours <= 0 {
				return fmt.Errorf("--ttl-hours must be positive")
			}

			if dsn == "" {
				dsn = defaultDSN(driver)
			}
			db, err := store.Open(cmd.Context(), driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := db.FindOrCreateUser(cmd.Context(), store.Identity{GoogleID: googleID, Email: email, Name: name})
			if err != nil {
				return fmt.Errorf("find or create user: %w", err)
			}
			token, err := session.NewSigner(secret, time.Duration(ttlHours)*time.Hour).Issue(u.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User: %s (%s)\n", u.ID, u.Email)
			fmt.Fprintf(out, "Activated: %t\n", u.IsActivated)
			fmt.Fprintf(out, "Token: %s\n", token)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "db-driver", envOr("DB_DRIVER", "sqlite"), "Database driver: postgres or sqlite")
	cmd.Flags().StringVar(&dsn, "db", "", "Postgres URL or SQLite file path (default $DB_URL or $SQLITE_PATH)")
	cmd.Flags().StringVar(&googleID, "google-id", "", "Google account id")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	cmd.Flags().IntVar(&ttlHours, "ttl-hours", 168, "Token lifetime in hours")
	cmd.MarkFlagRequired("google-id")
	cmd.MarkFlagRequired("email")
	return cmd
}

func defaultDSN(driver string) string {
	if driver == "postgres" {
		return os.Getenv("DB_URL")
	}
	return envOr("SQLITE_PATH", "./data/freeday.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
