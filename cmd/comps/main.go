// Command comps builds the historical dataset and answers comps and
// projection queries from the command line.
//
// Usage:
//
//	comps build --start-year 2015 --end-year 2025
//	comps fit
//	comps comps --input rookie.json --k 10
//	comps predict --input rookie.json --rolling-weight 0.4
//	cat rows.json | comps predict --input -
//	comps odds snapshot
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/mlb-betting/internal/app"
	"github.com/riskibarqy/mlb-betting/internal/config"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
)

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.Load, app.Build)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type (
	configLoader   func() (config.Config, error)
	containerMaker func(config.Config, *logging.Logger) (*app.Container, error)
)

type cli struct {
	loadConfig configLoader
	build      containerMaker
	logLevel   string

	container *app.Container
}

func newRootCmd(loadConfig configLoader, build containerMaker) *cobra.Command {
	c := &cli{loadConfig: loadConfig, build: build}

	root := &cobra.Command{
		Use:          "comps",
		Short:        "MLB player comps and projection engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override APP_LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(c.buildCmd())
	root.AddCommand(c.fitCmd())
	root.AddCommand(c.compsCmd())
	root.AddCommand(c.predictCmd())
	root.AddCommand(c.oddsCmd())
	return root
}

func (c *cli) setup() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = logging.ParseLevel(c.logLevel)
	}

	logger := logging.NewConsole(cfg.LogLevel)
	logging.SetDefault(logger)

	container, err := c.build(cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	c.container = container
	return nil
}

func (c *cli) teardown() error {
	if c.container == nil {
		return nil
	}
	_ = c.container.Logger.Sync()
	err := c.container.Close()
	c.container = nil
	return err
}

func (c *cli) buildCmd() *cobra.Command {
	var startYear, endYear int
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch season stats and replace the historical dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.container.Config
			if startYear == 0 {
				startYear = cfg.HistoryStartYear
			}
			if endYear == 0 {
				endYear = cfg.HistoryEndYear
			}

			result, err := c.container.History.Build(cmd.Context(), startYear, endYear)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"run_id", "seasons", "batters", "pitchers", "skipped", "duration"},
				[][]string{{
					result.RunID,
					fmt.Sprintf("%d-%d", startYear, endYear),
					strconv.Itoa(result.Batters),
					strconv.Itoa(result.Pitchers),
					strconv.Itoa(result.Skipped),
					result.Duration.Round(time.Millisecond).String(),
				}},
			)
		},
	}
	cmd.Flags().IntVar(&startYear, "start-year", 0, "First season (default HISTORY_START_YEAR)")
	cmd.Flags().IntVar(&endYear, "end-year", 0, "Last season (default HISTORY_END_YEAR)")
	return cmd
}

func (c *cli) fitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Fit the batter and pitcher indexes and report their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			indexes, err := c.container.Projections.FitAll(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(indexes))
			for _, role := range []season.Role{season.RoleBatter, season.RolePitcher} {
				ix, ok := indexes[role]
				if !ok {
					continue
				}
				rows = append(rows, []string{
					string(role),
					strconv.Itoa(ix.Size()),
					strconv.Itoa(ix.K()),
					ix.Schema().Primary(),
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"role", "records", "k", "primary"}, rows)
		},
	}
}

func (c *cli) compsCmd() *cobra.Command {
	var (
		input string
		role  string
		k     int
	)
	cmd := &cobra.Command{
		Use:   "comps",
		Short: "List the nearest historical comparables of one row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := c.readRecords(cmd, input, role)
			if err != nil {
				return err
			}
			if len(records) != 1 {
				return fmt.Errorf("comps takes exactly one row, got %d", len(records))
			}

			result, err := c.container.Projections.GetComps(cmd.Context(), records[0], k)
			if err != nil {
				return err
			}
			return writeComps(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON row file, or - for stdin")
	cmd.Flags().StringVar(&role, "role", "", "Force the role (batter or pitcher)")
	cmd.Flags().IntVar(&k, "k", 0, "Number of neighbors (0 uses the engine default)")
	return cmd
}

func (c *cli) predictCmd() *cobra.Command {
	var (
		input         string
		role          string
		rollingWeight float64
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Project the primary stat of one row or a JSON array of rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := c.readRecords(cmd, input, role)
			if err != nil {
				return err
			}

			var rw *float64
			if cmd.Flags().Changed("rolling-weight") {
				rw = &rollingWeight
			}

			if len(records) == 1 {
				projection, err := c.container.Projections.Predict(cmd.Context(), records[0], rw)
				if err != nil {
					return err
				}
				return writeProjection(cmd.OutOrStdout(), projection)
			}

			items, err := c.container.Projections.PredictBatch(cmd.Context(), records, rw)
			if err != nil {
				return err
			}
			if err := writeBatch(cmd.OutOrStdout(), items); err != nil {
				return err
			}
			var failed int
			for _, item := range items {
				if item.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rows failed", failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON row or array file, or - for stdin")
	cmd.Flags().StringVar(&role, "role", "", "Force the role (batter or pitcher)")
	cmd.Flags().Float64Var(&rollingWeight, "rolling-weight", 0, "Weight of rolling form in [0,1] (default from engine profile)")
	return cmd
}

func (c *cli) oddsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Odds feed commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Fetch current odds and store one snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.container.Odds.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			path := result.Path
			if !result.Written {
				path = "(empty, not written)"
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"games", "lines", "skipped", "requests_remaining", "path"},
				[][]string{{
					strconv.Itoa(result.Games),
					strconv.Itoa(result.Lines),
					strconv.Itoa(result.Skipped),
					strconv.Itoa(result.Quota.Remaining),
					path,
				}},
			)
		},
	})
	return cmd
}

func (c *cli) readRecords(cmd *cobra.Command, input, role string) ([]season.Record, error) {
	raw, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}
	records, err := parseRecords(rows, role)
	if err != nil {
		return nil, fmt.Errorf("invalid input row: %w", err)
	}
	return records, nil
}
