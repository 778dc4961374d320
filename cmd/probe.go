package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/vaporfx/internal/app"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
)

var errNoLevels = errors.New("no level readings captured")

func newProbeCmd(flags *globalFlags) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Listen to the microphone and plot its level",
		Long: `Probe opens a preview capture, samples the smoothed level every frame and
prints the trace as a terminal chart. Interrupt to stop early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			levels, err := probeLevels(ctx, cfg, newLogger(cfg), duration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, asciigraph.Plot(levels,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption("microphone level"),
			))
			peak, mean := levelStats(levels)
			fmt.Fprintf(out, "\nreadings: %d  peak: %.3f  mean: %.3f\n", len(levels), peak, mean)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to listen")
	return cmd
}

// probeLevels records the smoothed capture level once per frame until d
// elapses or ctx is cancelled.
func probeLevels(ctx context.Context, cfg app.Config, log *slog.Logger, d time.Duration) ([]float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	host := scheduler.NewTickerHost(cfg.FrameRate)
	defer host.Close()

	services, err := app.NewServices(cfg, log, host)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := services.Shutdown(); err != nil {
			log.Warn("probe shutdown", slog.Any("error", err))
		}
	}()

	var (
		mu     sync.Mutex
		levels []float64
	)
	id := services.Bus.Subscribe(domain.EventAudioLevel, func(event domain.Event) {
		e, ok := event.(domain.AudioLevelEvent)
		if !ok {
			return
		}
		mu.Lock()
		levels = append(levels, e.Level)
		mu.Unlock()
	})
	defer services.Bus.Unsubscribe(id)

	if err := services.Capture.StartCapture(ctx, domain.IntentPreview); err != nil {
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		log.Info("probe interrupted")
	case <-timer.C:
	}

	if err := services.Capture.StopCapture(); err != nil {
		log.Warn("stop capture", slog.Any("error", err))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) == 0 {
		return nil, errNoLevels
	}
	return append([]float64(nil), levels...), nil
}

func levelStats(levels []float64) (peak, mean float64) {
	if len(levels) == 0 {
		return 0, 0
	}
	var sum float64
	for _, l := range levels {
		sum += l
		peak = max(peak, l)
	}
	return peak, sum / float64(len(levels))
}
