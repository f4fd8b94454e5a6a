package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hagzilla/apiserver/internal/db"
	"github.com/hagzilla/apiserver/internal/logger"
	"github.com/hagzilla/apiserver/internal/services"
	"github.com/hagzilla/apiserver/internal/store"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var (
	adminUsername string
	adminPassword string
)

var usersCreateAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an account with the admin role",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminUsername == "" || adminPassword == "" {
			return errors.New("--username and --password are required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		hasher, err := cfg.Hasher()
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		user, err := services.NewUserService(store.NewUserRepository(conn), hasher).
			CreateAdmin(cmd.Context(), adminUsername, adminPassword)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		logger.Get().Info().Int("user_id", user.ID).Str("username", user.Username).Msg("admin created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersCreateAdminCmd)

	usersCreateAdminCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	usersCreateAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
}
