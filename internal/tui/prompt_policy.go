package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"

	"histport.dev/histport/internal/replay"
)

// ErrInteractiveDisabled is returned when prompts are disabled via HISTPORT_NO_INTERACTIVE
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled (HISTPORT_NO_INTERACTIVE is set)")

const (
	choiceRetry  = "Retry"
	choiceIgnore = "Ignore and continue"
	choiceAbort  = "Abort the export"
)

// askFunc matches survey.AskOne so tests can answer prompts
type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// PromptPolicy asks the user what to do about each failed operation
type PromptPolicy struct {
	splog *Splog
	ask   askFunc
}

var _ replay.FailurePolicy = (*PromptPolicy)(nil)

// NewPromptPolicy creates a policy prompting on the terminal
func NewPromptPolicy(splog *Splog) *PromptPolicy {
	return &PromptPolicy{splog: splog, ask: survey.AskOne}
}

// Decide shows the failure and returns the user's choice. Any prompt
// error, including Ctrl-C, counts as Abort.
func (p *PromptPolicy) Decide(ctx context.Context, f replay.Failure) replay.Decision {
	if ctx.Err() != nil || os.Getenv("HISTPORT_NO_INTERACTIVE") != "" {
		return replay.Abort
	}

	target := f.Op
	if f.Path != "" {
		target += " " + f.Path
	}
	p.splog.Error("%s failed: %v", target, f.Err)

	var choice string
	prompt := &survey.Select{
		Message: fmt.Sprintf("%s failed (attempt %d). What now?", target, f.Attempt),
		Options: []string{choiceRetry, choiceIgnore, choiceAbort},
		Default: choiceRetry,
	}
	if err := p.ask(prompt, &choice); err != nil {
		p.splog.Debug("prompt failed: %v", err)
		return replay.Abort
	}

	switch choice {
	case choiceRetry:
		return replay.Retry
	case choiceIgnore:
		return replay.Ignore
	default:
		return replay.Abort
	}
}
