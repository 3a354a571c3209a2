package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"spotify-charts/internal/components/chrono"
	"spotify-charts/internal/components/telemetry"
	"spotify-charts/lib/configutil"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultConfigName    = "chartctl.json5"
	defaultTelemetryName = "telemetry.json5"
)

var (
	configPath    string
	telemetryPath string
	verbose       bool
)

// env holds the dependencies setup builds for the command being run, commands get it
// from their context with envOf.
type env struct {
	cfg   Config
	tel   telemetry.API
	clock chrono.API
	otel  telemetry.Otel
}

type envKey struct{}

func newEnv(cfg Config) *env {
	utc, _ := chrono.NewStandardImpl("")
	return &env{
		cfg:   cfg,
		tel:   telemetry.SlogAPI{},
		clock: utc,
	}
}

func withEnv(cmd *cobra.Command, e *env) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, envKey{}, e))
}

// envOf falls back to an env with the default config when setup did not run.
func envOf(cmd *cobra.Command) *env {
	if ctx := cmd.Context(); ctx != nil {
		if e, ok := ctx.Value(envKey{}).(*env); ok {
			return e
		}
	}
	return newEnv(Config{})
}

var rootCmd = &cobra.Command{
	Use:   "chartctl",
	Short: "chartctl collects spotify chart histories and turns them into one dataset.",
	Long: `chartctl scrapes the per-track chart history pages of kworb.net, imports the
official chart exports and merges both into a single CSV with day over day metrics.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file, by default chartctl.json5 is searched from the working directory up.")
	rootCmd.PersistentFlags().StringVar(&telemetryPath, "telemetry", defaultTelemetryName, "Path to the optional OpenTelemetry config.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
}

func readConfig() (Config, error) {
	var (
		loaded Config
		err    error
	)
	if configPath != "" {
		loaded, err = configutil.ReadConfig[Config](configPath)
	} else {
		loaded, err = configutil.ReadRecursively[Config](defaultConfigName)
	}
	if errors.Is(err, os.ErrNotExist) {
		if configPath != "" {
			return Config{}, fmt.Errorf("config file %s does not exist", configPath)
		}
		return Config{}, nil
	}
	return loaded, err
}

func setup(cmd *cobra.Command, args []string) error {
	err := configutil.LoadEnv(".env")
	if err != nil {
		return err
	}

	cfg, err := readConfig()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	e := newEnv(cfg)

	level := telemetry.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	telemetry.InitSlog(os.Stderr, level)

	e.clock, err = chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	otelConfig, err := configutil.ReadConfig[telemetry.Config](telemetryPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read telemetry config: %w", err)
	}
	e.otel, err = telemetry.SetupOtel(cmd.Context(), "chartctl", otelConfig)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	if otelConfig.Enabled() {
		meterApi, err := telemetry.NewMeterAPI(telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		e.tel = meterApi
		telemetry.InstrumentPerfStats(cmd.Context())
	}

	withEnv(cmd, e)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 10*time.Second)
	defer cancel()
	return envOf(cmd).otel.Shutdown(ctx)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
