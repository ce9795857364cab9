package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olivierh59500/particle-emitter-go/audio"
	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/game"
	"github.com/olivierh59500/particle-emitter-go/internal/config"
)

const windowTitle = "Particle Emitter"

func newWindowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "window",
		Short: "Run the simulation in a desktop window (default)",
		Args:  cobra.NoArgs,
		RunE:  runWindow,
	}
}

func runWindow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	logger := loggerFrom(ctx)

	sim, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}
	ctl := control.New(sim, logger.Named("control"))

	var cue game.Cue
	if b := openAudio(cfg.Audio, logger); b != nil {
		defer b.Close()
		cue = b
	}

	return game.Run(game.New(ctl, cue, logger.Named("game")), windowTitle, cfg.Arena.TPS)
}

// openAudio returns nil when audio is disabled or the speaker is unavailable;
// the simulation runs silently in that case.
func openAudio(cfg config.AudioConfig, logger *zap.Logger) *audio.Bouncer {
	if !cfg.Enabled {
		return nil
	}
	b, err := audio.NewBouncer(cfg.SampleRate, cfg.Frequency, logger.Named("audio"))
	if err != nil {
		logger.Warn("audio disabled", zap.Error(err))
		return nil
	}
	if err := b.Initialize(); err != nil {
		logger.Warn("audio disabled", zap.Error(err))
		return nil
	}
	return b
}
