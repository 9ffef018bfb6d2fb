package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// daemonRecord is written next to the pid file so `allot daemon status`
// can find the API address and plan of a daemon started with other flags.
type daemonRecord struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	PlanPath  string    `json:"plan_path,omitempty"`
}

// daemonFiles locates the pid file and its JSON record for one daemon.
type daemonFiles struct {
	pidPath string
}

func (f daemonFiles) recordPath() string {
	return f.pidPath + ".json"
}

// ensureDir creates the directory holding the pid file.
func (f daemonFiles) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.pidPath), 0o750); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	return nil
}

// checkFree fails when a live allot daemon owns the pid file. A pid file
// left by a dead process is cleared.
func (f daemonFiles) checkFree() error {
	pid, err := f.pid()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case pidAlive(pid):
		return fmt.Errorf("allot daemon already running (pid %d)", pid)
	}
	f.clear()
	return nil
}

// claim records rec as the running daemon. The record is best effort.
func (f daemonFiles) claim(rec daemonRecord) error {
	if err := os.WriteFile(f.pidPath, []byte(strconv.Itoa(rec.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	_ = f.writeRecord(rec)
	return nil
}

func (f daemonFiles) clear() {
	_ = os.Remove(f.pidPath)
	_ = os.Remove(f.recordPath())
}

func (f daemonFiles) pid() (int, error) {
	data, err := os.ReadFile(f.pidPath) //nolint:gosec // user-chosen --pid-file
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s does not hold a pid", f.pidPath)
	}
	return pid, nil
}

func (f daemonFiles) writeRecord(rec daemonRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.recordPath(), append(data, '\n'), 0o600)
}

func (f daemonFiles) record() (daemonRecord, error) {
	var rec daemonRecord
	data, err := os.ReadFile(f.recordPath()) //nolint:gosec // derived from --pid-file
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}

// pidAlive probes pid with signal 0. EPERM still means the process exists.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// waitExit polls until pid is gone or the timeout passes.
func waitExit(pid int, timeout time.Duration) bool {
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(150 * time.Millisecond) {
		if !pidAlive(pid) {
			return true
		}
	}
	return !pidAlive(pid)
}

// childArgs rebuilds the command line for the detached child: --detach is
// dropped and the hidden --child marker added.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--child")
}
