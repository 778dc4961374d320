package fyne

import (
	"io"
	"log/slog"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// ClipSaveDialog asks where to store a voice clip and streams it there.
type ClipSaveDialog struct {
	window fyneapp.Window
	save   func(io.Writer) error
	logger *slog.Logger
}

// NewClipSaveDialog creates a save dialog that hands the chosen file to save.
func NewClipSaveDialog(window fyneapp.Window, save func(io.Writer) error, logger *slog.Logger) *ClipSaveDialog {
	return &ClipSaveDialog{
		window: window,
		save:   save,
		logger: logger,
	}
}

// Show displays the save dialog.
func (d *ClipSaveDialog) Show() {
	fd := dialog.NewFileSave(d.onChosen, d.window)
	fd.SetFileName("voice-clip.wav")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".wav"}))
	fd.Show()
}

func (d *ClipSaveDialog) onChosen(writer fyneapp.URIWriteCloser, err error) {
	if err != nil {
		d.logger.Error("save dialog error", slog.Any("error", err))
		return
	}
	if writer == nil {
		return // User cancelled
	}
	defer writer.Close()

	if err := d.save(writer); err != nil {
		d.logger.Error("voice clip save failed",
			slog.String("path", writer.URI().Path()),
			slog.Any("error", err))
		ShowError(d.window, err)
		return
	}
	d.logger.Info("voice clip written", slog.String("path", writer.URI().Path()))
}

// ShowError shows err in a modal dialog on window.
func ShowError(window fyneapp.Window, err error) {
	dialog.ShowError(err, window)
}
