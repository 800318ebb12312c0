package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage staff accounts",
	}

	var email, password, name, role string
	create := &cobra.Command{
		Use:   "create --email EMAIL --password PASSWORD --name NAME",
		Short: "Create an admin or agent account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != models.RoleAdmin && role != models.RoleAgent {
				return fmt.Errorf("role must be %q or %q", models.RoleAdmin, models.RoleAgent)
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			user := models.User{
				Name:     name,
				Email:    strings.ToLower(strings.TrimSpace(email)),
				Password: string(hash),
				Role:     role,
			}
			if err := a.store.DB().WithContext(cmd.Context()).Create(&user).Error; err != nil {
				if store.IsUniqueViolation(err) {
					return fmt.Errorf("email %s is already registered", user.Email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s account %d created for %s\n", user.Role, user.ID, user.Email)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&role, "role", models.RoleAdmin, "admin or agent")
	for _, f := range []string{"email", "password", "name"} {
		_ = create.MarkFlagRequired(f)
	}

	admin.AddCommand(create)
	return admin
}
