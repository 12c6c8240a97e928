package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docrev/internal/auth"
	"docrev/internal/config"
	"docrev/internal/models"
	"docrev/internal/store"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local users for authorship and notifications",
	}
	cmd.AddCommand(newUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserSetActiveCmd(cfg, jsonOutput, "disable", "Disable one user", false))
	cmd.AddCommand(newUserSetActiveCmd(cfg, jsonOutput, "enable", "Enable one user", true))
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		role          string
		displayName   string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one local user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			username, err := auth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			parsedRole, err := models.ParseUserRole(role)
			if err != nil {
				return err
			}

			passwordBytes, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				existing, err := st.GetUserByUsername(cmd.Context(), username)
				if err != nil {
					return err
				}
				if existing != nil {
					return fmt.Errorf("user %s already exists", username)
				}

				name := strings.TrimSpace(displayName)
				if name == "" {
					name = username
				}
				user := &models.User{
					Username:     username,
					Name:         name,
					Role:         string(parsedRole),
					PasswordHash: hash,
					IsActive:     true,
				}
				if err := st.CreateUser(cmd.Context(), user); err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(user)
				}
				return writePlain("created user %s (%s, %s)\n", user.Username, user.Role, user.ID)
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleEngineer), "user role (admin, engineer, viewer)")
	cmd.Flags().StringVar(&displayName, "name", "", "display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				users, err := st.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(users), "users": users})
				}
				if len(users) == 0 {
					return writePlain("no users configured\n")
				}
				if err := writePlain("USERNAME\tROLE\tSTATUS\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					status := "active"
					if !user.IsActive {
						status = "disabled"
					}
					if err := writePlain("%s\t%s\t%s\t%s\n", user.Username, user.Role, status, user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUserSetActiveCmd(cfg *config.Config, jsonOutput *bool, name, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := auth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				if err := st.SetUserActive(cmd.Context(), username, active); err != nil {
					return err
				}
				user, err := st.GetUserByUsername(cmd.Context(), username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %s not found", username)
				}

				if *jsonOutput {
					return writeJSON(user)
				}
				action := "enabled"
				if !active {
					action = "disabled"
				}
				return writePlain("%s user %s\n", action, user.Username)
			})
		},
	}
}
