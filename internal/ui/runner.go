package ui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run drives the model full screen until the user quits.
func Run(initial Model, in io.Reader, out io.Writer) error {
	program := tea.NewProgram(
		initial,
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Preview renders the first frame once, for non-interactive output.
func Preview(initial Model) string {
	return "tt UI (preview)\n" + initial.View()
}
