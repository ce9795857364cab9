package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/olivierh59500/particle-emitter-go/internal/config"
	"github.com/olivierh59500/particle-emitter-go/internal/observability"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

type contextKey int

const (
	configKey contextKey = iota
	loggerKey
	runIDKey
)

// NewRootCommand builds the command tree. Running it without a subcommand
// opens the window.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "particles",
		Short:         "A 2D particle emitter with barriers and repulsion.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := config.Configure(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "particles"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			runID := uuid.NewString()
			logger := observability.GetLogger().With(zap.String("run_id", runID))
			logger.Debug("starting", zap.String("version", Version), zap.String("command", cmd.Name()))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey, cfg)
			ctx = context.WithValue(ctx, loggerKey, logger)
			ctx = context.WithValue(ctx, runIDKey, runID)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: runWindow,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/config.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newWindowCmd())
	root.AddCommand(newTermCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree with ctx, typically cancelled on SIGINT
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.NewDefaultConfig()
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return observability.GetLogger()
}

// runIDFrom returns the id tagged on every log line, or "" outside a command
func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// newSimulation builds the simulation every front end shares
func newSimulation(cfg *config.Config, log *zap.Logger) (*physics.Simulation, error) {
	p := cfg.Params()
	opts := []physics.Option{physics.WithLogger(log.Named("physics"))}
	if j := cfg.JitterSource(p.Seed); j != nil {
		opts = append(opts, physics.WithJitter(j))
	}
	sim, err := physics.New(p, opts...)
	if err != nil {
		return nil, fmt.Errorf("create simulation: %w", err)
	}
	log.Info("simulation ready",
		zap.Float64("width", p.Width),
		zap.Float64("height", p.Height),
		zap.Int("capacity", p.Capacity),
		zap.Int("barriers", len(sim.Barriers())),
		zap.String("jitter", cfg.Jitter.Source),
	)
	return sim, nil
}
