// Package runtime provides the execution context for histport commands.
//
// It encapsulates shared dependencies needed by actions, such as the
// resolved settings, the logger and the background worker.
package runtime
