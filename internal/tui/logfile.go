package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the log file to use when none is configured:
// HISTPORT_LOG_FILE if set, otherwise ~/.histport/logs/histport.log.
func GetLogFilePath() string {
	if customPath := os.Getenv("HISTPORT_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "histport.log"
	}
	return filepath.Join(homeDir, ".histport", "logs", "histport.log")
}
