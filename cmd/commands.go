// FilePath: cmd/commands.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/database"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/server"
)

var cfg *config.Config

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hubctl",
		Short:         "Hive monitoring hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	userCmd := &cobra.Command{Use: "user", Short: "Manage users"}
	userCmd.AddCommand(userAddCommand())
	hiveCmd := &cobra.Command{Use: "hive", Short: "Manage hives"}
	hiveCmd.AddCommand(hiveAddCommand())

	rootCmd.AddCommand(
		serveCommand(),
		sweepCommand(),
		migrateCommand(),
		userCmd,
		hiveCmd,
	)
	return rootCmd
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inactivity sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Clear console and draw logo
			ClearConsole()
			DrawLogo()
			nuts.L.Infof("[Main] Starting hive hub v%s", nuts.GetVersion())

			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return srv.Start()
		},
	}
}

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single inactivity sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := server.NewDependencies(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			result := deps.Sweeper().Sweep(ctx)
			if result.Skipped {
				fmt.Println("sweep skipped: another sweep holds the lease")
				return nil
			}
			fmt.Printf("users=%d examined=%d deactivated=%d failures=%d duration=%v\n",
				result.Users, result.Examined, result.Deactivated, result.Failures, result.Duration)
			return nil
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs the postgres driver, configured driver is %q", cfg.Database.Driver)
			}
			db, err := database.NewPostgresDB(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db)
		},
	}
}

func userAddCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), func(ctx context.Context, deps *server.Dependencies) error {
				svc, err := deps.HubService()
				if err != nil {
					return err
				}
				user, err := svc.CreateUser(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Printf("created user %s (%s)\n", user.ID, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func hiveAddCommand() *cobra.Command {
	var hive models.Hive
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a hive for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), func(ctx context.Context, deps *server.Dependencies) error {
				svc, err := deps.HubService()
				if err != nil {
					return err
				}
				if err := svc.CreateHive(ctx, &hive); err != nil {
					return err
				}
				fmt.Printf("created hive %s for user %s\n", hive.ID, hive.UserID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hive.UserID, "user", "", "owning user id")
	cmd.Flags().StringVar(&hive.ID, "id", "", "hive id (generated when empty)")
	cmd.Flags().StringVar(&hive.Name, "name", "", "display name")
	cmd.Flags().StringVar(&hive.Location, "location", "", "free-form location")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func withDependencies(ctx context.Context, fn func(ctx context.Context, deps *server.Dependencies) error) error {
	deps, err := server.NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(ctx, deps)
}
