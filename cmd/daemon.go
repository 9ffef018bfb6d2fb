package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/theirongolddev/allot/internal/daemon"
	"github.com/theirongolddev/allot/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDaemonAddr         string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve the allocation engine over HTTP with an SSE revision stream",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the running daemon's plan, revision and edit counts",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Send SIGTERM to the running daemon and wait for it to exit",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(pipeline.CacheDir(), "allotd.pid"), "Where the daemon records its pid")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", filepath.Join(pipeline.CacheDir(), "allotd.log"), "Output of a --detach daemon")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Revision events kept for /v1/events (default from config)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Start the daemon in the background and return")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Set on the process started by --detach")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonAddr returns --addr, falling back to the configured address.
func daemonAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return cfg.Daemon.Addr
}

func runDaemon(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("--detach cannot be combined with --child")
	case flagDaemonDetach:
		return spawnDaemon(files)
	default:
		return serveDaemon(files)
	}
}

// spawnDaemon re-executes allot without --detach, output going to the log
// file, and returns once the child has started.
func spawnDaemon(files daemonFiles) error {
	if err := files.checkFree(); err != nil {
		return err
	}
	if err := files.ensureDir(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating allot executable: %w", err)
	}
	out, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // user-chosen --log-file
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer func() { _ = out.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // our own binary and arguments
	child.Stdout, child.Stderr = out, out
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	fmt.Printf("  allot daemon started in the background (pid %d)\n", child.Process.Pid)
	fmt.Printf("  Status: http://%s/v1/status\n", daemonAddr())
	fmt.Printf("  Pid file: %s\n", files.pidPath)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

// serveDaemon loads the plan, records the pid and serves the API until
// SIGINT or SIGTERM.
func serveDaemon(files daemonFiles) error {
	if err := files.checkFree(); err != nil {
		return err
	}
	if err := files.ensureDir(); err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	planPath, _ := resolvePlan()

	rec := daemonRecord{
		PID:       os.Getpid(),
		Addr:      daemonAddr(),
		StartedAt: time.Now(),
		PlanPath:  planPath,
	}
	if err := files.claim(rec); err != nil {
		return err
	}
	defer files.clear()

	buf := flagDaemonEventsBuffer
	if buf <= 0 {
		buf = cfg.Daemon.EventsBuffer
	}
	svc := daemon.New(daemon.Config{
		PlanPath:     planPath,
		Addr:         rec.Addr,
		EventsBuffer: buf,
	}, eng, logger.Named("daemon"))

	snap := eng.Snapshot()
	fmt.Printf("  allot daemon listening on http://%s\n", rec.Addr)
	fmt.Printf("  Serving plan %q (grand total %.2f, policy %s)\n", snap.Plan, snap.GrandTotal, eng.Policy())
	fmt.Printf("  Stop with: allot daemon stop --pid-file %s\n", files.pidPath)
	logger.Info("daemon starting", zap.String("addr", rec.Addr), zap.String("plan", snap.Plan))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.pid()
	if err != nil {
		fmt.Printf("  Daemon: not running (no pid file at %s)\n", files.pidPath)
		return nil
	}
	if !pidAlive(pid) {
		fmt.Printf("  Daemon: not running (pid %d in %s has exited)\n", pid, files.pidPath)
		return nil
	}

	addr := daemonAddr()
	if rec, err := files.record(); err == nil && rec.Addr != "" {
		addr = rec.Addr
	}
	fmt.Printf("  Daemon pid: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	st, err := fetchDaemonStatus(addr)
	if err != nil {
		fmt.Printf("  API: %v\n", err)
		return nil
	}

	fmt.Printf("  Plan: %s\n", st.Plan)
	if st.PlanPath != "" {
		fmt.Printf("  Plan file: %s\n", st.PlanPath)
	}
	fmt.Printf("  Revision: %d\n", st.Revision)
	fmt.Printf("  Grand total: %.2f\n", st.GrandTotal)
	fmt.Printf("  Edits: %d applied, %d rejected\n", st.EditsApplied, st.EditsRejected)
	if st.LastEditAt.IsZero() {
		fmt.Printf("  Last edit: none\n")
	} else {
		fmt.Printf("  Last edit: %s\n", st.LastEditAt.Local().Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Printf("  Last rejection: %s\n", st.LastError)
	}
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // bounded by client timeout
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status (%w)", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.pid()
	if err != nil {
		return fmt.Errorf("no allot daemon recorded in %s", files.pidPath)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding daemon pid %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling daemon pid %d: %w", pid, err)
	}

	if !waitExit(pid, 8*time.Second) {
		return fmt.Errorf("daemon pid %d still running after SIGTERM", pid)
	}
	files.clear()
	fmt.Printf("  Stopped allot daemon (pid %d)\n", pid)
	return nil
}
