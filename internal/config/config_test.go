package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvPlan, "")
	t.Setenv(EnvLogLevel, "")
	return dir
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	withConfigHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, Exists())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := withConfigHome(t)

	cfg := DefaultConfig()
	cfg.General.PlansDir = "/srv/plans"
	cfg.General.DefaultPlan = "retail"
	cfg.Engine.ZeroTotal = "equal"
	cfg.Daemon.EventsBuffer = 10
	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(home, "allot", "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	home := withConfigHome(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, "allot"), 0o755))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("[engine]\nzero_total = \"equal\"\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "equal", cfg.Engine.ZeroTotal)
	assert.Equal(t, "127.0.0.1:8417", cfg.Daemon.Addr)
}

func TestLoadRejectsBadToml(t *testing.T) {
	home := withConfigHome(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, "allot"), 0o755))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("[engine\n"), 0o600))

	_, err := Load()
	assert.ErrorContains(t, err, "parsing config")
}

func TestEnvOverrides(t *testing.T) {
	withConfigHome(t)
	t.Setenv(EnvPlan, "office")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "office", cfg.General.DefaultPlan)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestResolvePlanPath(t *testing.T) {
	home := withConfigHome(t)
	plans := filepath.Join(home, "plans")
	require.NoError(t, os.MkdirAll(plans, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(plans, "retail.yaml"), []byte("nodes: []\n"), 0o600))

	cfg := DefaultConfig()
	cfg.General.PlansDir = plans

	tests := []struct {
		name    string
		def     string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "nothing selects sample", want: ""},
		{name: "explicit sample", ref: "sample", want: ""},
		{name: "bare name", ref: "retail", want: filepath.Join(plans, "retail.yaml")},
		{name: "default plan", def: "retail", want: filepath.Join(plans, "retail.yaml")},
		{name: "flag wins", def: "sample", ref: "retail", want: filepath.Join(plans, "retail.yaml")},
		{name: "path", ref: "/tmp/x.toml", want: "/tmp/x.toml"},
		{name: "unknown name", ref: "ghost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.General.DefaultPlan = tt.def
			got, err := ResolvePlanPath(c, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlansDirDefault(t *testing.T) {
	home := withConfigHome(t)
	assert.Equal(t, filepath.Join(home, "allot", "plans"), PlansDir(DefaultConfig()))
}
