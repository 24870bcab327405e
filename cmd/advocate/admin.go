package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sujalkunwar22/backend/internal/account"
	"github.com/sujalkunwar22/backend/internal/db"
	"golang.org/x/term"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator account commands",
	}

	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

type adminOpts struct {
	configPath string
	email      string
	password   string
	firstName  string
	lastName   string
}

func newAdminCreateCmd() *cobra.Command {
	var opts adminOpts

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or promote an administrator account",
		Long: "Creates an ADMIN account. An existing account with the same email is promoted\n" +
			"and its password reset. The password is prompted for when --password is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(cmd, opts)
		},
	}

	addConfigFlag(cmd, &opts.configPath)
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "User", "last name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func runAdminCreate(cmd *cobra.Command, opts adminOpts) error {
	out := cmd.OutOrStdout()

	password := opts.password
	if password == "" {
		p, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		password = p
	}

	_, gormDB, err := connectFromConfig(cmd, opts.configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	user, created, err := account.CreateAdmin(cmd.Context(), gormDB, opts.email, password, opts.firstName, opts.lastName)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if created {
		fmt.Fprintf(out, "Created admin %s (%s)\n", user.Email, user.ID)
	} else {
		fmt.Fprintf(out, "Promoted %s (%s) to admin\n", user.Email, user.ID)
	}
	return nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
