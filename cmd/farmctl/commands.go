package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/database"
	"github.com/mamadbah2/farmdesk/internal/growth"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/seeder"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/pkg/authtoken"
	"github.com/mamadbah2/farmdesk/pkg/logger"
)

type app struct {
	envFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "farmctl",
		Short:        "Administer the farmdesk back office",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load before the environment")

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		simulateCmd(),
		a.tokenCmd(),
	)
	return root
}

// load reads the configuration and opens the database.
func (a *app) load(ctx context.Context) (*gorm.DB, error) {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	if a.logger, err = logger.New(cfg.Log.Level, "console"); err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg.Database, a.logger.Named("database"))
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	var (
		opts     seeder.Options
		scenario string
		start    string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo master data and simulated batches in one transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Scenario = growth.Scenario(scenario)
			if start != "" {
				t, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				opts.StartDate = t
			}
			db, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			books := bookkeeping.NewService(db, a.logger.Named("bookkeeping"))
			sum, err := seeder.New(db, books, a.logger.Named("seeder")).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Farms, "farms", 1, "number of farms")
	f.IntVar(&opts.CoopsPerFarm, "coops", 2, "coops per farm, one batch each")
	f.IntVar(&opts.Population, "population", 5000, "birds placed per coop")
	f.IntVar(&opts.Days, "days", seeder.DefaultDays, fmt.Sprintf("days to simulate (%d-%d)", seeder.MinDays, seeder.MaxDays))
	f.StringVar(&scenario, "scenario", string(growth.ScenarioNormal), "mortality scenario: good, normal or poor")
	f.StringVar(&start, "start", "", "placement date YYYY-MM-DD (default: days ago)")
	f.Float64Var(&opts.CullingRate, "culling-rate", 0, "daily share of birds culled")
	return cmd
}

func printSummary(w io.Writer, sum *seeder.Summary) {
	fmt.Fprintf(w, "users %d, farms %d, coops %d\n", sum.Users, sum.Farms, sum.Coops)
	fmt.Fprintf(w, "recordings %d, depletions %d, feed usages %d, feed bought %.0f kg\n",
		sum.Recordings, sum.Depletions, sum.FeedUsages, sum.FeedPurchasedKg)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FARM\tBATCH\tPLACED\tFINAL\tDEATHS\tCULLED\tWEIGHT\tFCR")
	for _, b := range sum.Batches {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.3f\t%.3f\n", b.Farm, b.Name, b.InitialQuantity, b.FinalPopulation, b.Deaths, b.Culled, b.FinalWeight, b.FCR)
	}
	_ = tw.Flush()
}

func simulateCmd() *cobra.Command {
	var (
		p        growth.Params
		scenario string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print the simulated growth table of one batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.Scenario = growth.Scenario(scenario)
			if p.StartDate.IsZero() {
				p.StartDate = time.Now().UTC().Truncate(24 * time.Hour)
			}
			days, err := growth.Simulate(p)
			if err != nil {
				return err
			}
			printDays(cmd.OutOrStdout(), days)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&p.InitialPopulation, "population", 5000, "birds placed")
	f.IntVar(&p.Days, "days", seeder.DefaultDays, "days to simulate")
	f.Float64Var(&p.InitialWeight, "initial-weight", growth.DefaultDOCWeight, "DOC weight in kg")
	f.Float64Var(&p.CullingRate, "culling-rate", 0, "daily share of birds culled")
	f.StringVar(&scenario, "scenario", string(growth.ScenarioNormal), "mortality scenario: good, normal or poor")
	return cmd
}

func printDays(w io.Writer, days []growth.Day) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DAY\tDATE\tPOP\tDEATHS\tCULLED\tWEIGHT\tGAIN\tFEED\tCUM FEED\tFCR\t")
	for _, d := range days {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%.3f\t%.3f\t%.1f\t%.1f\t%.3f\t\n",
			d.Day, d.Date.Format(time.DateOnly), d.PopulationEnd, d.Deaths, d.Culled,
			d.AvgWeight, d.WeightGain, d.FeedKg, d.CumulativeFeed, d.FCR)
	}
	_ = tw.Flush()
	t := growth.Summarize(days)
	fmt.Fprintf(w, "final population %d, deaths %d, culled %d, feed %.1f kg, weight %.3f kg, FCR %.3f\n",
		t.FinalPop, t.Deaths, t.Culled, t.FeedKg, t.FinalWeight, t.FinalFCR)
}

func (a *app) tokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			users := store.NewUsers(db)
			user, err := users.ByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("user %s: %w", email, err)
			}
			if _, err := users.Principal(cmd.Context(), user); err != nil {
				return fmt.Errorf("user %s: %w", email, err)
			}
			tokens, err := authtoken.NewManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, claims, err := tokens.Issue(user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s), expires %s\n", user.Email, user.Role, claims.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
