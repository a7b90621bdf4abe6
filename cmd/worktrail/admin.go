package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/internal/db"
	"github.com/worktrail/worktrail/internal/db/migrations"
	"github.com/worktrail/worktrail/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.RunMigrations(cmd.Context(), pool, log, migrations.FS); err != nil {
				return err
			}

			v, err := db.AppliedVersion(cmd.Context(), pool)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d of %d\n", v, db.SchemaVersion())

			return nil
		},
	}
}

func newPrincipalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage API principals",
	}

	var (
		name   string
		avatar string
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a principal and print its API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			key, err := newAPIKey()
			if err != nil {
				return err
			}

			var avatarURL *string
			if avatar != "" {
				avatarURL = &avatar
			}

			principals := store.NewPrincipalStore(store.Base{Pool: pool, Log: log})

			p, err := principals.CreatePrincipal(cmd.Context(), name, avatarURL, key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "id:      %s\nname:    %s\napi_key: %s\n", p.ID, p.Name, key)

			return nil
		},
	}

	create.Flags().StringVar(&name, "name", "", "Display name (required)")
	create.Flags().StringVar(&avatar, "avatar-url", "", "Avatar URL")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)

	return cmd
}

// newAPIKey returns a random key with the wt_ prefix.
func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API key: %w", err)
	}

	return "wt_" + hex.EncodeToString(buf), nil
}
