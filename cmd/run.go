package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/vaporfx/internal/app"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the desktop window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(flags)
		},
	}
}

func runDesktop(flags *globalFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}

	// Create the application with dependency injection
	application, err := app.NewApplication(cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Run application (blocks until the window closed)
	application.Run()

	if err := application.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
