package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/surface/raster"
	"github.com/tejashwikalptaru/vaporfx/internal/app"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
)

// Render effects.
const (
	effectAmbient   = "ambient"
	effectEvaporate = "evaporate"
)

// evaporateWarmup is how many vapor frames play before the burst.
const evaporateWarmup = 30

type renderOptions struct {
	effect string
	frames int
	every  int
	outDir string
}

func newRenderCmd(flags *globalFlags) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an effect headlessly to PNG frames",
		Long: `Render drives an effect on a manual frame host and writes every n-th frame
as a PNG. Effects: ambient, evaporate, led_bars, bars, waveform.
Visualizer effects listen to the synthetic tone; pass --mock=false to use the microphone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("mock") && opts.effect != effectAmbient && opts.effect != effectEvaporate {
				cfg.UseMockAudio = true
			}
			written, err := renderFrames(cmd.Context(), cfg, newLogger(cfg), opts)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", written, opts.outDir)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.effect, "effect", effectAmbient, "effect to render")
	cmd.Flags().IntVar(&opts.frames, "frames", 120, "frames to simulate")
	cmd.Flags().IntVar(&opts.every, "every", 1, "write every n-th frame")
	cmd.Flags().StringVar(&opts.outDir, "out", "frames", "output directory")
	return cmd
}

// renderFrames runs opts.effect and writes PNG frames. It stops early when the
// effect releases its surface and returns the number of files written.
func renderFrames(ctx context.Context, cfg app.Config, log *slog.Logger, opts renderOptions) (int, error) {
	if opts.frames <= 0 {
		return 0, domain.NewValidationError("frames", opts.frames, "must be positive")
	}
	if opts.every <= 0 {
		opts.every = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	host := scheduler.NewManualHost()
	services, err := app.NewServices(cfg, log, host)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := services.Shutdown(); err != nil {
			log.Warn("render shutdown", slog.Any("error", err))
		}
	}()

	surface := raster.New(cfg.Width, cfg.Height)
	if err := startEffect(ctx, services, host, surface, opts.effect); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	written := 0
	for frame := 1; frame <= opts.frames; frame++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		host.Advance(1)
		if surface.Released() {
			log.Info("effect finished", slog.Int("frame", frame))
			break
		}
		if frame%opts.every != 0 {
			continue
		}

		path := filepath.Join(opts.outDir, fmt.Sprintf("%s-%04d.png", opts.effect, frame))
		if err := writePNG(path, surface.Image()); err != nil {
			return written, err
		}
		written++
	}

	log.Info("render complete",
		slog.String("effect", opts.effect),
		slog.Int("files", written))
	return written, nil
}

func startEffect(ctx context.Context, services *app.Services, host *scheduler.ManualHost, surface *raster.Surface, effect string) error {
	switch effect {
	case effectAmbient:
		return services.Effects.StartAmbient(surface)

	case effectEvaporate:
		if err := services.Effects.StartAmbient(surface); err != nil {
			return err
		}
		host.Advance(evaporateWarmup)
		return services.Effects.TriggerEvaporation(nil)

	default:
		style := domain.VisualizerStyle(effect)
		if !style.Valid() {
			return domain.NewValidationError("effect", effect, "must be ambient, evaporate, led_bars, bars or waveform")
		}
		if err := services.Capture.StartCapture(ctx, domain.IntentPreview); err != nil {
			return err
		}
		return services.Capture.AttachVisualizer(surface, style)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
