package cmd

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/terminal"
)

func newTermCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "term",
		Short: "Run the simulation in the terminal",
		Long: `Run the simulation in the terminal. Terminals report no key releases,
so steering keys push the emitter for one frame per key repeat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			logger := loggerFrom(ctx)

			sim, err := newSimulation(cfg, logger)
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}

			loop := &terminal.Loop{
				Screen:    screen,
				Control:   control.New(sim, logger.Named("control")),
				TPS:       cfg.Arena.TPS,
				TimeScale: cfg.Arena.TimeScale,
				Log:       logger.Named("terminal"),
			}
			if b := openAudio(cfg.Audio, logger); b != nil {
				defer b.Close()
				loop.Cue = b
			}
			return loop.Run(ctx)
		},
	}
}
