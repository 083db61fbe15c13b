package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Dosada05/valorant-arena/db"
	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/services"
	"github.com/spf13/cobra"
)

var (
	promoteEmail string
	promoteRole  string
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	userCmd.AddCommand(userPromoteCmd)
	announceCmd.AddCommand(announceUpcomingCmd)
	rootCmd.AddCommand(migrateCmd, userCmd, announceCmd)

	userPromoteCmd.Flags().StringVar(&promoteEmail, "email", "", "Email of the account to change")
	userPromoteCmd.Flags().StringVar(&promoteRole, "role", string(models.RoleAdmin), "admin | organizer | player")
	_ = userPromoteCmd.MarkFlagRequired("email")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		applied, err := db.Migrate(cmd.Context(), e.db)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}
		for _, v := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d\n", v)
		}
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		states, err := db.MigrationStatus(cmd.Context(), e.db)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tSOURCE")
		for _, s := range states {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Source)
		}
		return tw.Flush()
	},
}

// accountStore is the part of the user repository that role changes need.
type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateRole(ctx context.Context, id int, role models.UserRole) error
}

var openAccounts = func() (accountStore, func(), error) {
	e, err := openEnv()
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewPostgresUserRepository(e.db), e.Close, nil
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Set the role of an account, e.g. bootstrap the first admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.UserRole(promoteRole)
		if !role.Valid() {
			return fmt.Errorf("%w: %q", services.ErrInvalidRole, promoteRole)
		}

		users, closeStore, err := openAccounts()
		if err != nil {
			return err
		}
		defer closeStore()

		user, err := users.GetByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(promoteEmail)))
		if err != nil {
			return fmt.Errorf("lookup %s: %w", promoteEmail, err)
		}
		if err := users.UpdateRole(cmd.Context(), user.ID, role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now %s\n", user.ID, user.DisplayName, role)
		return nil
	},
}

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Post announcements to the configured chat integrations",
}

var announceUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Announce tournaments and matches that start soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := notifier.FromConfig(e.cfg, metrics.Nop{}, e.logger)
		if err != nil {
			return err
		}
		announcer := services.NewUpcomingAnnouncer(
			repositories.NewPostgresTournamentRepository(e.db),
			repositories.NewPostgresMatchRepository(e.db),
			repositories.NewPostgresRegistrationRepository(e.db),
			n,
			e.cfg.Scheduler.AnnounceWindow,
			e.logger,
		)
		report, err := announcer.Run(cmd.Context(), time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tournaments: %d, matches: %d, failed: %d\n",
			report.Tournaments, report.Matches, report.Failed)
		return nil
	},
}
