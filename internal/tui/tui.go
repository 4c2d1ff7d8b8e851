// Package tui provides the interactive selection prompt used when a site
// offers several credentials or providers.
package tui

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user leaves the picker without choosing
var ErrCancelled = errors.New("selection cancelled")

// Pick shows options and returns the chosen index. The prompt renders on
// stderr so stdout stays usable for command output.
func Pick(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to choose from")
	}
	if !IsTerminal() {
		return -1, fmt.Errorf("interactive selection requires a terminal; pass the name explicitly")
	}

	p := tea.NewProgram(NewPicker(title, options), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return -1, fmt.Errorf("failed to run picker: %w", err)
	}

	picker, ok := final.(PickerModel)
	if !ok || picker.Chosen() < 0 {
		return -1, ErrCancelled
	}
	return picker.Chosen(), nil
}

// IsTerminal checks if stdin is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
