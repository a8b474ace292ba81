// Package tui provides histport's terminal interface.
//
// It handles:
//   - Logging to the console and a rotating log file (Splog)
//   - Interactive failure prompts (using survey)
//   - The export progress view (using bubbletea and lipgloss)
//   - Terminal detection and color handling
package tui
