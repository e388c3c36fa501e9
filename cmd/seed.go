package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"seatrotation/config"
	"seatrotation/internal/services"
)

func newSeedCmd() *cobra.Command {
	var (
		from string
		days int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate sessions for a date range",
		Long:  "Generate one session per weekday starting at --from. Existing dates are left untouched, so seeding can be re-run safely.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreDriverMemory {
				return errors.New("seed requires a persistent store, set STORE_DRIVER=postgres")
			}
			logger := config.NewLogger()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cal, err := newCalendar(cfg)
			if err != nil {
				return err
			}
			start := cal.Today(time.Now())
			if from != "" {
				if start, err = cal.ParseDate(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if days < 1 {
				days = cfg.SeedHorizonDays
			}

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			created, err := services.NewSessionService(st.sessions, cal, logger, cfg.RequestTimeout).GenerateSessions(ctx, start, days)
			if err != nil {
				return err
			}
			for _, s := range created {
				owner := "holiday"
				if s.ReservedForBatch != nil {
					owner = string(*s.ReservedForBatch)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", s.Date.Format(time.DateOnly), owner)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d sessions\n", len(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD (default today in FACILITY_TZ)")
	cmd.Flags().IntVar(&days, "days", 0, "number of calendar days to cover (default SEED_HORIZON_DAYS)")
	return cmd
}
