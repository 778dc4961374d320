package fyne

import (
	"image/color"
	"log/slog"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// visualizerHeight is the height of the spectrum strip above the controls.
const visualizerHeight = 80

// styleChoices maps the style selector labels to visualizer styles.
// "Auto" picks LED bars for preview and plain bars for recording.
var styleChoices = []struct {
	label string
	style domain.VisualizerStyle
}{
	{"Auto", ""},
	{"LED bars", domain.StyleLEDBars},
	{"Bars", domain.StyleBars},
	{"Waveform", domain.StyleWaveform},
}

// WindowOptions configures the main window.
type WindowOptions struct {
	Title  string
	Width  float32
	Height float32
	Logger *slog.Logger
}

// MainWindow is the main UI window implementing the UIView interface.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger

	// Effect layers, back to front
	ambientLayer    *widgets.EffectLayer
	burstLayer      *widgets.EffectLayer
	visualizerLayer *widgets.EffectLayer

	// UI components
	recordButton    *widget.Button
	previewButton   *widget.Button
	evaporateButton *widget.Button
	saveButton      *widget.Button
	ambientCheck    *widget.Check
	styleSelect     *widget.Select
	levelBar        *widget.ProgressBar
	status          *widget.Label

	// syncing is set while the view mirrors state into input widgets,
	// so their change callbacks are not forwarded.
	syncing bool

	// Lifecycle management
	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App, opts WindowOptions) *MainWindow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	w := &MainWindow{
		app:    app,
		logger: opts.Logger,
	}

	size := fyneapp.NewSize(opts.Width, opts.Height)
	w.window = app.NewWindow(opts.Title)
	w.ambientLayer = widgets.NewEffectLayer(size)
	w.burstLayer = widgets.NewEffectLayer(size)
	w.visualizerLayer = widgets.NewEffectLayer(fyneapp.NewSize(opts.Width, visualizerHeight))

	w.buildUI()
	w.window.Resize(size)

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	w.recordButton = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), nil)
	w.previewButton = widget.NewButtonWithIcon("Preview", theme.VisibilityIcon(), nil)
	w.evaporateButton = widget.NewButtonWithIcon("Evaporate", theme.ContentClearIcon(), nil)
	w.saveButton = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), nil)
	w.saveButton.Disable()

	w.ambientCheck = widget.NewCheck("Vapor", nil)

	labels := make([]string, len(styleChoices))
	for i, c := range styleChoices {
		labels[i] = c.label
	}
	w.styleSelect = widget.NewSelect(labels, nil)
	w.styleSelect.SetSelectedIndex(0)

	w.levelBar = widget.NewProgressBar()
	w.levelBar.TextFormatter = func() string { return "" }

	w.status = widget.NewLabel("")
	w.status.Alignment = fyneapp.TextAlignCenter
	w.status.TextStyle = fyneapp.TextStyle{Italic: true}

	// The spacer gives the visualizer strip its height
	strip := canvas.NewRectangle(color.Transparent)
	strip.SetMinSize(fyneapp.NewSize(0, visualizerHeight))
	visualizer := container.NewStack(strip, w.visualizerLayer)

	buttons := container.NewHBox(
		w.recordButton, w.previewButton, w.evaporateButton, w.saveButton,
		layout.NewSpacer(),
		w.ambientCheck, w.styleSelect,
	)
	controls := container.NewVBox(visualizer, w.levelBar, buttons)
	content := container.NewBorder(nil, controls, nil, nil, container.NewCenter(w.status))

	w.window.SetContent(container.NewStack(
		w.ambientLayer,
		w.burstLayer,
		container.NewPadded(content),
	))

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.recordButton.OnTapped = func() {
		w.presenter.OnRecordClicked()
	}

	w.previewButton.OnTapped = func() {
		w.presenter.OnPreviewClicked()
	}

	w.evaporateButton.OnTapped = func() {
		w.presenter.OnEvaporateClicked()
	}

	w.saveButton.OnTapped = func() {
		w.handleSaveClip()
	}

	w.ambientCheck.OnChanged = func(on bool) {
		if w.syncing {
			return
		}
		w.presenter.OnAmbientToggled(on)
	}

	w.styleSelect.OnChanged = func(string) {
		if i := w.styleSelect.SelectedIndex(); i >= 0 {
			w.presenter.OnStyleSelected(styleChoices[i].style)
		}
	}
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	saveClip := fyneapp.NewMenuItem("Save Voice Clip...", func() {
		w.handleSaveClip()
	})

	exitMenu := fyneapp.NewMenuItem("Exit", func() {
		w.Close()
	})

	evaporate := fyneapp.NewMenuItem("Evaporate", func() {
		if w.presenter != nil {
			w.presenter.OnEvaporateClicked()
		}
	})

	toggleVapor := fyneapp.NewMenuItem("Toggle Vapor", func() {
		w.ambientCheck.SetChecked(!w.ambientCheck.Checked)
	})

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", saveClip, separator, exitMenu),
		fyneapp.NewMenu("Effects", evaporate, toggleVapor),
	}
}

// handleSaveClip handles the "Save Voice Clip" action.
func (w *MainWindow) handleSaveClip() {
	if w.presenter == nil {
		return
	}
	if _, ok := w.presenter.LastClip(); !ok {
		w.ShowNotification("Voice Clip", "Nothing recorded yet")
		return
	}
	NewClipSaveDialog(w.window, w.presenter.SaveClip, w.logger).Show()
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	shortcuts := map[fyneapp.KeyName]func(){
		fyneapp.KeyR: w.presenter.OnRecordClicked,
		fyneapp.KeyP: w.presenter.OnPreviewClicked,
		fyneapp.KeyE: w.presenter.OnEvaporateClicked,
	}
	for key, fn := range shortcuts {
		w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
			KeyName:  key,
			Modifier: fyneapp.KeyModifierAlt,
		}, func(fyneapp.Shortcut) { fn() })
	}
}

// SelectStyle picks style in the selector as if the user chose it.
func (w *MainWindow) SelectStyle(style domain.VisualizerStyle) {
	for i, c := range styleChoices {
		if c.style == style {
			w.styleSelect.SetSelectedIndex(i)
			return
		}
	}
}

// ShowAndRun shows the window, starts the vapor and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.window.Show()
	if w.presenter != nil {
		w.presenter.Start()
	}
	w.app.Run()
}

// SetOnClosed registers fn to run when the window closes.
func (w *MainWindow) SetOnClosed(fn func()) {
	w.window.SetOnClosed(fn)
}

// Close closes the window. It's safe to call multiple times.
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		w.window.Close()
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// UIView interface implementation

// SetRecording updates the record button.
func (w *MainWindow) SetRecording(recording bool) {
	if recording {
		w.recordButton.SetText("Stop")
		w.recordButton.SetIcon(theme.MediaStopIcon())
		w.recordButton.Importance = widget.DangerImportance
	} else {
		w.recordButton.SetText("Record")
		w.recordButton.SetIcon(theme.MediaRecordIcon())
		w.recordButton.Importance = widget.MediumImportance
	}
	w.recordButton.Refresh()
}

// SetPreviewing updates the preview button.
func (w *MainWindow) SetPreviewing(previewing bool) {
	if previewing {
		w.previewButton.SetText("Stop Preview")
		w.previewButton.SetIcon(theme.VisibilityOffIcon())
	} else {
		w.previewButton.SetText("Preview")
		w.previewButton.SetIcon(theme.VisibilityIcon())
	}
}

// SetLevel updates the level meter.
func (w *MainWindow) SetLevel(level float64) {
	w.levelBar.SetValue(level)
}

// SetClipAvailable enables saving once a clip exists.
func (w *MainWindow) SetClipAvailable(available bool) {
	if available {
		w.saveButton.Enable()
	} else {
		w.saveButton.Disable()
	}
}

// SetAmbient mirrors the vapor state into the toggle without re-triggering it.
func (w *MainWindow) SetAmbient(running bool) {
	w.syncing = true
	w.ambientCheck.SetChecked(running)
	w.syncing = false
}

// SetStatus updates the centre status line.
func (w *MainWindow) SetStatus(text string) {
	w.status.SetText(text)
}

// AmbientSurface returns the surface behind everything.
func (w *MainWindow) AmbientSurface() ports.Surface {
	return w.ambientLayer.Surface()
}

// BurstSurface returns the surface above the vapor.
func (w *MainWindow) BurstSurface() ports.Surface {
	return w.burstLayer.Surface()
}

// VisualizerSurface returns the spectrum strip surface.
func (w *MainWindow) VisualizerSurface() ports.Surface {
	return w.visualizerLayer.Surface()
}

// ClearVisualizer wipes the spectrum strip.
func (w *MainWindow) ClearVisualizer() {
	w.visualizerLayer.Clear()
}

// ShowNotification displays a system notification.
func (w *MainWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

// Verify UIView implementation
var _ UIView = (*MainWindow)(nil)
