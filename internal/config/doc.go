// Package config resolves histport's settings.
//
// Settings come from, in increasing precedence:
//   - defaults registered by NewLoader
//   - a histport.yaml, histport.toml or histport.json file
//   - HISTPORT_* environment variables, with "." in keys replaced by "_"
//   - command-line flags bound with BindFlag
package config
