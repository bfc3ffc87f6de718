package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fixit/internal/app"
	"fixit/internal/models"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage the vendor directory",
}

var vendorName, vendorEmail, vendorPhone, vendorServices string

var vendorsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a vendor directory entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := app.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		v := &models.Vendor{Name: vendorName, Email: vendorEmail, Phone: vendorPhone, Services: vendorServices, Active: true}
		if err := rt.Backend.Vendors.Create(ctx, v); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "vendor %s id=%s\n", v.Name, v.ID)
		return nil
	},
}

func init() {
	vendorsAddCmd.Flags().StringVar(&vendorName, "name", "", "company name")
	vendorsAddCmd.Flags().StringVar(&vendorEmail, "email", "", "contact email")
	vendorsAddCmd.Flags().StringVar(&vendorPhone, "phone", "", "contact phone")
	vendorsAddCmd.Flags().StringVar(&vendorServices, "services", "", "comma separated trades")
	_ = vendorsAddCmd.MarkFlagRequired("name")
	vendorsCmd.AddCommand(vendorsAddCmd)
}
