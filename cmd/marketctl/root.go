package main

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/opendoor-marketplace/matchengine/internal/config"
	"github.com/opendoor-marketplace/matchengine/internal/engine"
	"github.com/opendoor-marketplace/matchengine/internal/metrics"
	"github.com/opendoor-marketplace/matchengine/internal/pulse"
	"github.com/opendoor-marketplace/matchengine/internal/store"
	"github.com/opendoor-marketplace/matchengine/internal/trainlog"
	tlpg "github.com/opendoor-marketplace/matchengine/internal/trainlog/postgres"

	"github.com/prometheus/client_golang/prometheus"
)

// bootstrapFlags are the seed/synthetic flags shared by every subcommand
// that needs a populated engine to operate against. Each invocation of
// marketctl is a fresh process; state is rebuilt per run from a fixture or
// from synthetic generation.
type bootstrapFlags struct {
	seedPath       string
	syntheticUsers int
	syntheticOpps  int
	preferFlow     bool
}

func addBootstrapFlags(cmd *cobra.Command, f *bootstrapFlags) {
	cmd.Flags().StringVar(&f.seedPath, "seed", "", "path to a fixture JSON file to load before running")
	cmd.Flags().IntVar(&f.syntheticUsers, "synthetic-users", 0, "generate N synthetic users instead of seeding a fixture")
	cmd.Flags().IntVar(&f.syntheticOpps, "synthetic-opps", 0, "generate N synthetic opportunities instead of seeding a fixture")
	cmd.Flags().BoolVar(&f.preferFlow, "flow-solver", true, "use the min-cost-flow solver (false forces the greedy fallback)")
}

// buildEngineWithConfig constructs a fresh store+engine against an already
// resolved config, applying the bootstrap flags in order: fixture seed first
// (if given), then synthetic generation (if counts are non-zero).
func buildEngineWithConfig(f bootstrapFlags, cfg config.Settings) (*engine.Engine, *store.Store, error) {
	st := store.New(pulse.Config{DecayTauHours: cfg.DemandDecayTauHours, LiquidityK: cfg.PricingLiquidityK}, nil)

	if f.seedPath != "" {
		if err := st.LoadFixture(f.seedPath); err != nil {
			return nil, nil, err
		}
	}
	if f.syntheticUsers > 0 || f.syntheticOpps > 0 {
		st.GenerateSynthetic(f.syntheticUsers, f.syntheticOpps, nil)
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	tl := trainlog.New(cfg.RSVPImpressionsLogPath, cfg.RSVPEventsLogPath, nil)
	if cfg.TrainlogPostgresDSN != "" {
		db, err := sqlx.Connect("postgres", cfg.TrainlogPostgresDSN)
		if err != nil {
			log.Warn().Err(err).Msg("trainlog postgres sink unavailable, writing JSONL only")
		} else {
			tl.AttachSink(tlpg.NewSink(db, 2*time.Second))
		}
	}
	eng := engine.New(st, cfg, f.preferFlow, reg, tl, nil)
	return eng, st, nil
}

func buildEngine(f bootstrapFlags) (*engine.Engine, *store.Store, error) {
	return buildEngineWithConfig(f, config.Load())
}

// Execute builds the root command and runs it to completion.
func Execute(ctx context.Context) error {
	root := &cobra.Command{Use: "marketctl", Short: "Operator CLI for the events marketplace matching engine"}

	// Accept underscore spellings for every flag (--synthetic_users and
	// --synthetic-users are the same flag).
	root.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(
		serveCmd(),
		seedCmd(),
		solveCmd(),
		rebalanceCmd(),
		feedbackCmd(),
		feedCmd(),
		trendingCmd(),
		explainCmd(),
		rsvpCmd(),
		upsertUserCmd(),
		stateSnapshotCmd(),
		demoCmd(),
	)

	log.Debug().Msg("marketctl starting")
	return root.ExecuteContext(ctx)
}
