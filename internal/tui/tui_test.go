package tui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"histport.dev/histport/internal/replay"
	"histport.dev/histport/internal/worker"
)

func TestSplog(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		var buf bytes.Buffer
		splog, err := NewSplogWithConfig(&buf, "", false)
		require.NoError(t, err)

		splog.Info("replayed %d changesets", 3)
		splog.Debug("hidden")
		splog.Warn("careful")
		require.Equal(t, "replayed 3 changesets\n⚠️  careful\n", buf.String())

		buf.Reset()
		splog.SetQuiet(true)
		splog.Info("suppressed")
		splog.Page("also suppressed")
		require.Empty(t, buf.String())
		require.True(t, splog.IsQuiet())
	})

	t.Run("log file receives every level", func(t *testing.T) {
		var buf bytes.Buffer
		logFile := filepath.Join(t.TempDir(), "logs", "histport.log")
		splog, err := NewSplogWithConfig(&buf, logFile, false)
		require.NoError(t, err)

		splog.Logger().Debug("engine detail")
		splog.SetQuiet(true)
		splog.Error("boom")
		require.NoError(t, splog.Close())

		require.Empty(t, buf.String())
		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		require.Contains(t, string(data), "engine detail")
		require.Contains(t, string(data), "boom")
		require.Contains(t, string(data), "level=DEBUG")
	})

	t.Run("debug", func(t *testing.T) {
		var buf bytes.Buffer
		splog, err := NewSplogWithConfig(&buf, "", true)
		require.NoError(t, err)
		splog.Debug("visible")
		require.Equal(t, "visible\n", buf.String())
	})
}

func TestGetLogFilePath(t *testing.T) {
	t.Setenv("HISTPORT_LOG_FILE", "/tmp/custom.log")
	require.Equal(t, "/tmp/custom.log", GetLogFilePath())

	t.Setenv("HISTPORT_LOG_FILE", "")
	t.Setenv("HOME", "/home/someone")
	require.Equal(t, filepath.Join("/home/someone", ".histport", "logs", "histport.log"), GetLogFilePath())
}

func TestPromptPolicy(t *testing.T) {
	failure := replay.Failure{Op: "commit", Err: errors.New("locked"), Attempt: 1}

	answer := func(choice string, err error) askFunc {
		return func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
			sel, ok := p.(*survey.Select)
			if !ok {
				return errors.New("unexpected prompt")
			}
			if sel.Default != choiceRetry {
				return errors.New("unexpected default")
			}
			*(response.(*string)) = choice
			return err
		}
	}

	tests := []struct {
		name string
		ask  askFunc
		want replay.Decision
	}{
		{"retry", answer(choiceRetry, nil), replay.Retry},
		{"ignore", answer(choiceIgnore, nil), replay.Ignore},
		{"abort", answer(choiceAbort, nil), replay.Abort},
		{"interrupted", answer("", errors.New("interrupt")), replay.Abort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			splog, err := NewSplogWithConfig(&buf, "", false)
			require.NoError(t, err)
			policy := &PromptPolicy{splog: splog, ask: tt.ask}
			require.Equal(t, tt.want, policy.Decide(context.Background(), failure))
			require.Contains(t, buf.String(), "commit failed: locked")
		})
	}

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("HISTPORT_NO_INTERACTIVE", "1")
		policy := &PromptPolicy{splog: NewSplog(), ask: answer(choiceRetry, nil)}
		require.Equal(t, replay.Abort, policy.Decide(context.Background(), failure))
	})
}

type fakeStats struct{ snap replay.Snapshot }

func (f *fakeStats) Snapshot() replay.Snapshot { return f.snap }

type fakeStatus struct{ status worker.Status }

func (f *fakeStatus) Status() worker.Status { return f.status }

func TestProgressModel(t *testing.T) {
	stats := &fakeStats{snap: replay.Snapshot{State: replay.StateReplaying, Total: 4, Changesets: 1, Revisions: 1234, Diagnostics: 2}}
	status := &fakeStatus{status: worker.Status{Running: "export", Message: "replaying changeset 2 of 4"}}
	aborts := 0
	m := NewProgressModel("Exporting", stats, status, func() { aborts++ })

	model, cmd := m.Update(progressTickMsg{})
	m = model.(ProgressModel)
	require.NotNil(t, cmd)
	require.False(t, m.Done())

	view := m.View()
	require.Contains(t, view, "Exporting")
	require.Contains(t, view, "1/4 changesets")
	require.Contains(t, view, "1,234")
	require.Contains(t, view, "2 diagnostics")
	require.Contains(t, view, "replaying changeset 2 of 4")

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = model.(ProgressModel)
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = model.(ProgressModel)
	require.True(t, m.Aborting())
	require.Equal(t, 1, aborts)
	require.Contains(t, m.View(), "aborting")

	stats.snap.State = replay.StateAborted
	status.status = worker.Status{}
	model, _ = m.Update(progressTickMsg{})
	m = model.(ProgressModel)
	require.True(t, m.Done())
	require.Contains(t, m.View(), "aborted")
}
