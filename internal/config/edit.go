package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"mvdan.cc/sh/v3/shell"

	"github.com/xdg/cmdgate/internal/clog"
)

// EditGlobalConfig opens the config file at path (GlobalConfigPath() when
// empty) in the user's editor, creating it from the default template first
// if it does not exist.
//
// The edited file is loaded afterwards. Problems are logged as a warning
// rather than returned so the user can fix the file in a later session.
func EditGlobalConfig(path string) error {
	if path == "" {
		path = GlobalConfigPath()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaultConfigTo(path); err != nil {
			return fmt.Errorf("create default config: %w", err)
		}
	}

	argv, err := editorCommand(path)
	if err != nil {
		return err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", argv[0], err)
	}

	if _, err := LoadGlobalConfigFrom(path); err != nil {
		clog.Warn("%s has errors after edit: %v", path, err)
	}
	return nil
}

// editorCommand builds the argv for editing path. $VISUAL wins over
// $EDITOR, and either may carry arguments ("code --wait").
func editorCommand(path string) ([]string, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		return []string{"vi", path}, nil
	}

	fields, err := shell.Fields(editor, nil)
	if err != nil {
		return nil, fmt.Errorf("parse editor %q: %w", editor, err)
	}
	if len(fields) == 0 {
		return []string{"vi", path}, nil
	}
	return append(fields, path), nil
}
