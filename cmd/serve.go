package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/stream"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a headless simulation and stream it over websockets",
		Long: `Run a headless simulation and stream JSON snapshots to every websocket
client on /ws. Clients send text commands back: action names such as
"gravity" or "radius+", a direction for a one-frame push, or +dir / -dir
to hold and release a direction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			logger := loggerFrom(ctx)
			if addr == "" {
				addr = cfg.Stream.Addr
			}
			if !cmd.Flags().Changed("allow-origin") {
				origins = cfg.Stream.AllowedOrigins
			}

			sim, err := newSimulation(cfg, logger)
			if err != nil {
				return err
			}
			hub := stream.NewHub(runIDFrom(ctx), cfg.Stream.FPS, cfg.Stream.Burst, logger.Named("stream"),
				stream.WithOrigins(origins...))
			loop := &stream.Loop{
				Hub:       hub,
				Control:   control.New(sim, logger.Named("control")),
				TPS:       cfg.Arena.TPS,
				TimeScale: cfg.Arena.TimeScale,
				Log:       logger.Named("stream"),
			}
			return serve(ctx, addr, hub, loop, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default stream.addr)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "browser origins admitted besides the server's own host (default stream.allowed_origins)")
	return cmd
}

// serve runs the HTTP server and the simulation loop until either stops or
// ctx is cancelled
func serve(ctx context.Context, addr string, hub *stream.Hub, loop *stream.Loop, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("streaming", zap.String("addr", addr), zap.String("run_id", hub.RunID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := loop.Run(ctx)
		// Loop ends on quit too; take the server down with it
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", serr)
		}
		return err
	})
	return g.Wait()
}
