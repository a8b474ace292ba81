// Package runtime provides a context type that holds the settings, logger
// and background worker for use throughout the application. This avoids
// passing multiple parameters.
package runtime

import (
	"context"
	"errors"
	"io"
	"os"

	"histport.dev/histport/internal/config"
	"histport.dev/histport/internal/tui"
	"histport.dev/histport/internal/worker"
)

// Context provides access to settings, output and the worker for commands
type Context struct {
	context.Context
	Splog    *tui.Splog
	Settings *config.Settings
	Out      io.Writer

	worker *worker.Worker
}

// NewContext creates a context around already resolved settings
func NewContext(ctx context.Context, splog *tui.Splog, settings *config.Settings) *Context {
	if settings == nil {
		settings = &config.Settings{}
	}
	return &Context{
		Context:  ctx,
		Splog:    splog,
		Settings: settings,
		Out:      os.Stdout,
	}
}

// GetContext resolves settings through loader and sets up logging the
// way they ask for. The log file defaults to ~/.histport/logs/histport.log.
func GetContext(ctx context.Context, loader *config.Loader, configPath string) (*Context, error) {
	settings, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}

	logFile := settings.Log.File
	if logFile == "" {
		logFile = tui.GetLogFilePath()
	}
	debug := settings.Log.Debug || os.Getenv("DEBUG") != ""
	splog, err := tui.NewSplogWithConfig(os.Stdout, logFile, debug)
	if err != nil {
		// a log file we cannot open must not stop the command
		splog, _ = tui.NewSplogWithConfig(os.Stdout, "", debug)
		splog.Warn("logging to the console only: %v", err)
	}
	if settings.File != "" {
		splog.Debug("using configuration %s", settings.File)
	}
	return NewContext(ctx, splog, settings), nil
}

// Worker returns the background worker, starting it on first use
func (c *Context) Worker() *worker.Worker {
	if c.worker == nil {
		c.worker = worker.New(c.Context, c.Splog.Logger())
	}
	return c.worker
}

// Close stops the worker and flushes the log file
func (c *Context) Close() error {
	var errs []error
	if c.worker != nil {
		if err := c.worker.Stop(); err != nil && !errors.Is(err, worker.ErrStopped) {
			errs = append(errs, err)
		}
	}
	if c.Splog != nil {
		errs = append(errs, c.Splog.Close())
	}
	return errors.Join(errs...)
}
