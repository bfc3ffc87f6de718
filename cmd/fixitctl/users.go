package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fixit/internal/app"
	"fixit/internal/models"
	"fixit/internal/service"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var (
	userEmail, userName, userPassword, userRole string
)

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with any role",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := app.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		auth := service.NewAuthService(rt.Backend.Users, cfg.SessionSecret)
		u, err := auth.CreateUser(ctx, userEmail, userName, userPassword, models.Role(userRole))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Email, u.Role, u.ID)
		return nil
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	usersCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password (min 8 chars)")
	usersCreateCmd.Flags().StringVar(&userRole, "role", string(models.RoleTenant), "tenant|vendor|propertymanager|landlord|admin")
	_ = usersCreateCmd.MarkFlagRequired("email")
	_ = usersCreateCmd.MarkFlagRequired("name")
	_ = usersCreateCmd.MarkFlagRequired("password")
	usersCmd.AddCommand(usersCreateCmd)
}
