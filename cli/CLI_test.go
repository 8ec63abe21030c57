package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newrelic/go-easy-profiling/internal/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flamer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, NewCLIConfig(), cfg)
	assert.Equal(t, "./...", cfg.PackageName)
	assert.Equal(t, "flame", cfg.EntryDirective)
	assert.Equal(t, "noflame", cfg.OptOutDirective)
	assert.Equal(t, codegen.FlameImportPath, cfg.Runtime.ImportPath)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
path: ./app
discipline: explicit
entry: trace
opt_out: notrace
restricted_directives:
  - go:nosplit
runtime:
  import_path: example.com/prof/guard
  module: example.com/prof
  start: Begin
  end: Stop
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./app", cfg.PackagePath)
	assert.Equal(t, "./...", cfg.PackageName)
	assert.Equal(t, []string{"go:nosplit"}, cfg.RestrictedDirectives)

	pc, err := cfg.ParserConfig()
	require.NoError(t, err)
	assert.Equal(t, codegen.ExplicitEnd, pc.Discipline)
	assert.Equal(t, "trace", pc.EntryDirective)
	assert.Equal(t, "notrace", pc.OptOutDirective)
	assert.Equal(t, codegen.Runtime{ImportPath: "example.com/prof/guard", StartFunc: "Begin", EndMethod: "Stop"}, pc.Runtime)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "unknown_key: true\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "discipline: [\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, NewCLIConfig(), cfg)
}

func TestCLIConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		edit    func(cfg *CLIConfig)
		wantErr bool
	}{
		{
			name: "valid",
			edit: func(cfg *CLIConfig) {},
		},
		{
			name:    "missing path",
			edit:    func(cfg *CLIConfig) { cfg.PackagePath = "" },
			wantErr: true,
		},
		{
			name:    "path does not exist",
			edit:    func(cfg *CLIConfig) { cfg.PackagePath = filepath.Join(dir, "nope") },
			wantErr: true,
		},
		{
			name:    "unknown discipline",
			edit:    func(cfg *CLIConfig) { cfg.Discipline = "sometimes" },
			wantErr: true,
		},
		{
			name:    "same directives",
			edit:    func(cfg *CLIConfig) { cfg.OptOutDirective = cfg.EntryDirective },
			wantErr: true,
		},
		{
			name:    "runtime outside module",
			edit:    func(cfg *CLIConfig) { cfg.Runtime.ImportPath = "example.com/other/flame" },
			wantErr: true,
		},
		{
			name:    "runtime start is not an identifier",
			edit:    func(cfg *CLIConfig) { cfg.Runtime.StartFunc = "Start Guard" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewCLIConfig()
			cfg.PackagePath = dir
			tt.edit(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
