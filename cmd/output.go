package cmd

import (
	"fmt"
	"io"

	"ccsw/config"
	"ccsw/config/models"
	"ccsw/internal/tui"
	"ccsw/internal/utils"
	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// isInteractive is replaced in tests
var isInteractive = tui.IsTerminal

// picker returns the terminal prompt, or nil when stdin is not a terminal
// so that an ambiguous choice fails instead of blocking.
func picker() config.Picker {
	if !isInteractive() {
		return nil
	}
	return tui.Pick
}

func printSuccess(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, successStyle.Render("✓ "+fmt.Sprintf(format, a...)))
}

func printWarn(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, warnStyle.Render("! "+fmt.Sprintf(format, a...)))
}

// describeSelection prints what a switch recorded, with the secret masked
func describeSelection(w io.Writer, sel *models.ActiveSelection) {
	if sel.TokenName != "" {
		fmt.Fprintf(w, "  凭据: %s (%s)\n", sel.TokenName, utils.MaskAPIKey(sel.Secret()))
	} else if sel.Secret() != "" {
		fmt.Fprintf(w, "  凭据: %s\n", utils.MaskAPIKey(sel.Secret()))
	}
	if sel.Provider != "" {
		fmt.Fprintf(w, "  Provider: %s\n", sel.Provider)
	}
	if sel.BaseURL != "" {
		fmt.Fprintf(w, "  URL: %s\n", sel.BaseURL)
	}
	if sel.Model != "" {
		fmt.Fprintf(w, "  模型: %s\n", sel.Model)
	}
}
