// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"fmt"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	fyneui "github.com/tejashwikalptaru/vaporfx/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for the run command
type Application struct {
	// Core dependencies
	config  Config
	logger  *slog.Logger
	fyneApp fyne.App

	// Infrastructure
	host     *fyneui.AnimationHost
	services *Services

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	shutdownOnce sync.Once
	shutdownErr  error
}

// Options carries what cannot come from a config file.
type Options struct {
	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config, opts Options) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{config: config}

	// Step 1: Create Fyne application
	if opts.TestFyneApp != nil {
		app.fyneApp = opts.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 2: Create logger
	app.logger = logger.NewLogger(config.LoggerConfig())
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().Version),
		slog.Bool("mock_audio", config.UseMockAudio))

	// Step 3: Frames come from Fyne's animation runner
	app.host = fyneui.NewAnimationHost()

	// Step 4: Create services (bus, capture manager, effects)
	services, err := NewServices(config, app.logger, app.host)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}
	app.services = services

	// Step 5: Create UI
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, fyneui.WindowOptions{
		Title:  config.AppName,
		Width:  float32(config.Width),
		Height: float32(config.Height),
		Logger: app.logger.With(slog.String("component", "window")),
	})

	// Step 6: Create Presenter and wire with UI
	app.presenter = fyneui.NewPresenter(
		app.logger.With(slog.String("component", "presenter")),
		services.Effects,
		services.Capture,
		services.Bus,
		app.mainWindow,
	)

	// Connect presenter to the main window
	app.mainWindow.SetPresenter(app.presenter)
	app.mainWindow.SelectStyle(config.Visualizer)

	// Effects and the microphone must stop before the window goes away
	app.mainWindow.SetOnClosed(func() {
		if err := app.Shutdown(); err != nil {
			app.logger.Warn("shutdown on close", slog.Any("error", err))
		}
	})

	return app, nil
}

// Run starts the application and blocks until the window is closed.
func (a *Application) Run() {
	a.logger.Info("vaporfx started", slog.String("version", GetVersionInfo().FullString()))
	a.mainWindow.ShowAndRun()
}

// Shutdown gracefully shuts down the application. It's safe to call multiple times.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		// Presenter first: it stops capture and effects and unsubscribes
		if a.presenter != nil {
			a.presenter.Shutdown()
		}

		if a.services != nil {
			a.shutdownErr = a.services.Shutdown()
		}

		if a.host != nil {
			a.host.Close()
		}

		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// GetServices returns the effect and capture services.
func (a *Application) GetServices() (*service.EffectsService, *service.CaptureService) {
	return a.services.Effects, a.services.Capture
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.services.Bus
}

// GetFyneApp returns the Fyne application.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// GetMainWindow returns the main window.
func (a *Application) GetMainWindow() *fyneui.MainWindow {
	return a.mainWindow
}

// GetPresenter returns the presenter.
func (a *Application) GetPresenter() *fyneui.Presenter {
	return a.presenter
}
