package main

import (
	"fmt"

	"lucky-draw/plugin/dialog"
	"lucky-draw/plugin/files"
)

// The filesystem and dialog plugins are reached from the frontend through
// these methods only. Binding the plugins themselves would also expose
// their lifecycle methods (Init, Name) and the scope.

func (a *App) requireFiles() error {
	if a.files == nil {
		return fmt.Errorf("filesystem plugin not initialized")
	}
	return nil
}

func (a *App) requireDialogs() error {
	if a.dialogs == nil {
		return fmt.Errorf("dialog plugin not initialized")
	}
	return nil
}

// ReadTextFile returns the contents of a file in the file scope
func (a *App) ReadTextFile(path string) (string, error) {
	if err := a.requireFiles(); err != nil {
		return "", err
	}
	return a.files.ReadTextFile(path)
}

// WriteTextFile writes a file in the file scope
func (a *App) WriteTextFile(path string, contents string) error {
	if err := a.requireFiles(); err != nil {
		return err
	}
	return a.files.WriteTextFile(path, contents)
}

// FileExists reports whether path exists and is in the file scope
func (a *App) FileExists(path string) bool {
	if a.files == nil {
		return false
	}
	return a.files.Exists(path)
}

// ReadDir lists a directory in the file scope
func (a *App) ReadDir(path string) ([]files.DirEntry, error) {
	if err := a.requireFiles(); err != nil {
		return nil, err
	}
	return a.files.ReadDir(path)
}

// MakeDir creates a directory in the file scope
func (a *App) MakeDir(path string) error {
	if err := a.requireFiles(); err != nil {
		return err
	}
	return a.files.Mkdir(path)
}

// RemovePath deletes a file or empty directory in the file scope
func (a *App) RemovePath(path string) error {
	if err := a.requireFiles(); err != nil {
		return err
	}
	return a.files.Remove(path)
}

// OpenFileDialog shows a single-file picker. The chosen file joins the scope.
func (a *App) OpenFileDialog(opts dialog.Options) (string, error) {
	if err := a.requireDialogs(); err != nil {
		return "", err
	}
	return a.dialogs.Open(opts)
}

// OpenFilesDialog shows a multi-file picker
func (a *App) OpenFilesDialog(opts dialog.Options) ([]string, error) {
	if err := a.requireDialogs(); err != nil {
		return nil, err
	}
	return a.dialogs.OpenMultiple(opts)
}

// SelectFolderDialog shows a directory picker
func (a *App) SelectFolderDialog(title string) (string, error) {
	if err := a.requireDialogs(); err != nil {
		return "", err
	}
	return a.dialogs.SelectFolder(title)
}

// SaveFileDialog shows a save dialog. The chosen file joins the scope.
func (a *App) SaveFileDialog(opts dialog.Options) (string, error) {
	if err := a.requireDialogs(); err != nil {
		return "", err
	}
	return a.dialogs.Save(opts)
}

// ShowMessage shows a message box and returns the chosen button
func (a *App) ShowMessage(kind, title, message string) (string, error) {
	if err := a.requireDialogs(); err != nil {
		return "", err
	}
	return a.dialogs.Message(kind, title, message)
}
