package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/vaporfx/internal/app"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	mockAudio  bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "vaporfx",
		Short:         "Vapor particle effects and microphone visualizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file path (yaml)")
	root.PersistentFlags().BoolVar(&flags.mockAudio, "mock", false, "use a synthetic tone instead of the microphone")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		newRunCmd(flags),
		newRenderCmd(flags),
		newProbeCmd(flags),
		newVersionCmd(),
	)
	return root
}

// load reads the config file when one is given and applies the flags over it.
func (f *globalFlags) load() (app.Config, error) {
	cfg := app.DefaultConfig()
	if f.configFile != "" {
		var err error
		if cfg, err = app.LoadConfig(f.configFile); err != nil {
			return cfg, err
		}
	}
	if f.mockAudio {
		cfg.UseMockAudio = true
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

// newLogger builds the command logger from cfg.
func newLogger(cfg app.Config) *slog.Logger {
	return logger.NewLogger(cfg.LoggerConfig())
}
