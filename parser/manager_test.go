package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

func testInstrumentationManager(t *testing.T, testAppDir string, files map[string]string) *InstrumentationManager {
	pkgs, err := createTestApp(t, testAppDir, files)
	if err != nil {
		cleanTestApp(t, testAppDir)
		t.Fatal(err)
	}

	diffFile := filepath.Join(testAppDir, "flame-instrumentation.diff")
	manager := NewInstrumentationManager(pkgs, DefaultConfig(), diffFile, testAppDir)
	require.NoError(t, manager.DetectDependencyIntegrations())
	require.NoError(t, manager.CreateDiffFile())
	return manager
}

func TestInstrumentApplication(t *testing.T) {
	testDir := fmt.Sprintf("tmp_%s", pseudo_uuid())
	defer cleanTestApp(t, testDir)

	manager := testInstrumentationManager(t, testDir, map[string]string{
		"app.go": `//flame
package app

func a() {}

//noflame
func c() {
	a()
}
`,
		"untouched.go": `package app

func b() {
	a()
}
`,
	})

	progress := bytes.NewBuffer([]byte{})
	manager.ShowProgress(progress)
	require.NoError(t, manager.InstrumentApplication(context.Background()))
	assert.Equal(t, []string{"app::a"}, manager.Guards())

	require.NoError(t, manager.WriteDiff())
	diff, err := os.ReadFile(manager.diffFile)
	require.NoError(t, err)
	assert.Contains(t, string(diff), "app.go")
	assert.Contains(t, string(diff), `+	defer flame.StartGuard("app::a").End()`)
	assert.Contains(t, string(diff), `go-easy-profiling/flame"`)
	assert.NotContains(t, string(diff), "untouched.go")
}

func TestInstrumentApplicationReportsPackageErrors(t *testing.T) {
	testDir := fmt.Sprintf("tmp_%s", pseudo_uuid())
	defer cleanTestApp(t, testDir)

	manager := testInstrumentationManager(t, testDir, map[string]string{
		"app.go": `package app

//flame 1
func a() {}
`,
	})

	err := manager.InstrumentApplication(context.Background())
	assert.ErrorIs(t, err, ErrMalformedAnnotation)
	assert.ErrorContains(t, err, "package ")
	assert.Empty(t, manager.Guards())
}

func TestInstrumentApplicationCanceled(t *testing.T) {
	file := parseFiles(t, `//flame
package app

func a() {}
`)[0]
	manager := NewInstrumentationManager([]*decorator.Package{{
		Package: &packages.Package{ID: "app"},
		Syntax:  []*dst.File{file},
	}}, DefaultConfig(), "unused.diff", ".")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, manager.InstrumentApplication(ctx), context.Canceled)
	assert.Empty(t, manager.Guards())
}

func TestPackageState_modifiedFiles(t *testing.T) {
	files := parseFiles(t, "package app\n", "package app\n")
	state := &PackageState{
		pkg:    &decorator.Package{Syntax: files},
		guards: []Guard{{Name: "app::b", File: files[1]}, {Name: "app::c", File: files[1]}},
	}
	assert.Equal(t, []*dst.File{files[1]}, state.modifiedFiles())
}

func Test_requiresModule(t *testing.T) {
	tests := []struct {
		name    string
		goMod   string
		want    bool
		wantErr bool
	}{
		{
			name: "required",
			goMod: `module example.com/app

go 1.24

require github.com/newrelic/go-easy-profiling v0.1.0
`,
			want: true,
		},
		{
			name: "runtime module itself",
			goMod: `module github.com/newrelic/go-easy-profiling

go 1.24
`,
			want: true,
		},
		{
			name: "missing",
			goMod: `module example.com/app

go 1.24

require github.com/dave/dst v0.27.3
`,
			want: false,
		},
		{
			name:    "invalid",
			goMod:   "module example.com/app\nrequire (\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "go.mod")
			require.NoError(t, os.WriteFile(path, []byte(tt.goMod), 0644))

			got, err := requiresModule(path, DefaultRuntimeModule)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_findGoMod(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n"), 0644))

	got, err := findGoMod(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "go.mod"), got)
}

func TestAddRequiredModulesSkipsUninstrumentedPackages(t *testing.T) {
	manager := NewInstrumentationManager([]*decorator.Package{{
		Package: &packages.Package{ID: "app"},
	}}, DefaultConfig(), "unused.diff", ".")
	assert.NoError(t, manager.AddRequiredModules())
}
