// Package actions provides the business logic behind histport's commands.
//
// Each action corresponds to a command (export, verify, changesets,
// archive ls) and orchestrates the source, replay and vcs packages.
//
// Key patterns:
//   - Actions accept runtime.Context which provides Settings, Splog and the worker
//   - Options structs let tests replace the archive and the target backend
//   - Actions report to the user through the tui package
package actions
