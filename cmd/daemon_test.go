package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestChildArgs(t *testing.T) {
	got := childArgs([]string{"daemon", "--detach", "--addr", "127.0.0.1:9000", "--detach=true", "-f", "retail"})
	assert.Equal(t, []string{"daemon", "--addr", "127.0.0.1:9000", "-f", "retail", "--child"}, got)
}

func TestDaemonFilesClaimAndClear(t *testing.T) {
	files := daemonFiles{pidPath: filepath.Join(t.TempDir(), "run", "allotd.pid")}
	require.NoError(t, files.ensureDir())

	want := daemonRecord{
		PID:       4242,
		Addr:      "127.0.0.1:8417",
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		PlanPath:  "/plans/retail.toml",
	}
	require.NoError(t, files.claim(want))

	pid, err := files.pid()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
	got, err := files.record()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	files.clear()
	_, err = files.pid()
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = files.record()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDaemonFilesBadPID(t *testing.T) {
	files := daemonFiles{pidPath: filepath.Join(t.TempDir(), "allotd.pid")}
	require.NoError(t, os.WriteFile(files.pidPath, []byte("nope\n"), 0o600))

	_, err := files.pid()
	assert.Error(t, err)
	assert.Error(t, files.checkFree())
}

func TestDaemonFilesCheckFree(t *testing.T) {
	files := daemonFiles{pidPath: filepath.Join(t.TempDir(), "allotd.pid")}

	// Missing pid file is fine.
	require.NoError(t, files.checkFree())

	// Our own pid is alive.
	require.NoError(t, files.claim(daemonRecord{PID: os.Getpid()}))
	assert.Error(t, files.checkFree())
}

func TestWaitExitOnLiveProcess(t *testing.T) {
	assert.False(t, waitExit(os.Getpid(), 10*time.Millisecond))
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("info", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = newLogger("error", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("chatty", false)
	assert.Error(t, err)
}
