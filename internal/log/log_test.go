package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 45, 0, 0, time.UTC)

	got := Format(at, LevelWarn, CatSave, "persist failed", "doc", "abc", "attempt", 2)
	require.Equal(t, "2026-10-18T10:45:00 [WARN] [save] persist failed doc=abc attempt=2\n", got)
}

func TestFormat_OddFieldCount(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 45, 0, 0, time.UTC)

	got := Format(at, LevelInfo, CatDB, "opened", "path")
	require.Contains(t, got, "path=<missing>")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelInfo)
	t.Cleanup(Reset)

	Debug(CatUI, "hidden")
	Info(CatUI, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "[INFO] [ui] shown")
}

func TestErrorErr_AppendsError(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelDebug)
	t.Cleanup(Reset)

	ErrorErr(CatAssist, "request failed", errors.New("boom"), "op", "enhance")
	require.Contains(t, buf.String(), "op=enhance error=boom")

	buf.Reset()
	ErrorErr(CatAssist, "request failed", nil)
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestSetEnabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelDebug)
	t.Cleanup(Reset)

	SetEnabled(false)
	Info(CatConfig, "muted")
	require.Empty(t, buf.String())

	SetEnabled(true)
	Info(CatConfig, "audible")
	require.Contains(t, buf.String(), "audible")
}

func TestSubscribe_ReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelDebug)
	t.Cleanup(Reset)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := Subscribe(ctx)
	require.NotNil(t, ch)

	Info(CatHistory, "committed", "len", 3)

	select {
	case ev := <-ch:
		require.Contains(t, ev.Payload, "committed len=3")
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for log event")
	}
}

func TestNoLogger_NoPanic(t *testing.T) {
	Reset()
	require.NotPanics(t, func() {
		Info(CatDB, "nobody listening")
	})
	require.Nil(t, Subscribe(context.Background()))
}
