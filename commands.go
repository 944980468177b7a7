package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfg *Config

	// rootCmd represents the base command; it serves when run bare
	rootCmd := &cobra.Command{
		Use:   "govinda-seva",
		Short: "Temple visitor services backend",
		Long: `Govinda Seva serves the temple visitor portal: issue reports, SOS alerts,
live staff dashboards, darshan wait times, broadcasts and crowd predictions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = LoadConfig()
			setupLogger(cfg.LogLevel, cfg.LogFormat)
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo issues, alerts, wait times and shifts into the SQLite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := initDB(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			if cfg.DefaultAdminPassword != "" {
				if err := seedAdmin(db, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
					return err
				}
			}
			if err := seedDemoData(db); err != nil {
				return err
			}
			log.Info().Str("path", cfg.DatabasePath).Msg("Demo data loaded")
			return nil
		},
	}

	var staffEmail, staffPassword, staffName, staffRole string
	createStaffCmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Provision a volunteer, admin or security account",
		Long: `Create a pre-verified staff account on the local auth provider.
Firebase deployments assign staff roles through the "role" custom claim instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AuthProvider != "local" {
				return fmt.Errorf("create-staff only works with AUTH_PROVIDER=local")
			}
			if err := validateRegister(RegisterInput{Email: staffEmail, Password: staffPassword, ConfirmPassword: staffPassword}); err != nil {
				return err
			}

			db, err := initDB(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			ident, err := NewLocalAuth(db, cfg.BaseURL).CreateStaff(cmd.Context(), staffEmail, staffPassword, staffName, staffRole)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s (%s)\n", ident.Role, ident.Email, ident.UID)
			return nil
		},
	}
	createStaffCmd.Flags().StringVar(&staffEmail, "email", "", "Account email")
	createStaffCmd.Flags().StringVar(&staffPassword, "password", "", "Account password (at least 6 characters)")
	createStaffCmd.Flags().StringVar(&staffName, "name", "", "Display name shown in the shift log")
	createStaffCmd.Flags().StringVar(&staffRole, "role", AccountVolunteer, "volunteer, admin or security")
	createStaffCmd.MarkFlagRequired("email")
	createStaffCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(createStaffCmd)
	return rootCmd
}

func runServe(parent context.Context, cfg *Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run(ctx)
}
