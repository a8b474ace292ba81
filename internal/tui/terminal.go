package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsTTY reports whether stdin and stdout are both attached to a terminal
// that interactive views and prompts can use
func IsTTY() bool {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return false
	}
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// ConfigureColor disables styling when NO_COLOR is set or stdout is not
// a terminal
func ConfigureColor() {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// ColorRed colors text red
func ColorRed(text string) string { return redStyle.Render(text) }

// ColorGreen colors text green
func ColorGreen(text string) string { return greenStyle.Render(text) }

// ColorYellow colors text yellow
func ColorYellow(text string) string { return yellowStyle.Render(text) }

// ColorCyan colors text cyan
func ColorCyan(text string) string { return cyanStyle.Render(text) }

// ColorDim makes text dim
func ColorDim(text string) string { return dimStyle.Render(text) }

// Bold makes text bold
func Bold(text string) string { return boldStyle.Render(text) }
