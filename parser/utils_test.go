// Test Utils contains tools and building blocks that can be generically used for unit tests

package parser

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/goast"
	"github.com/dave/dst/decorator/resolver/guess"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

// createTestApp creates a test app in the given directory with the given files and loads it with type information
// loading is expensive, so this will be skipped in short mode
func createTestApp(t *testing.T, testAppDir string, files map[string]string) ([]*decorator.Package, error) {
	// integration tests are slow, so we skip them in short mode
	if testing.Short() {
		t.Skip("Skipping package loading tests in short mode")
	}

	err := os.Mkdir(testAppDir, 0755)
	if err != nil {
		return nil, err
	}

	for fileName, contents := range files {
		err = os.WriteFile(filepath.Join(testAppDir, fileName), []byte(contents), 0644)
		if err != nil {
			return nil, err
		}
	}
	return decorator.Load(&packages.Config{Dir: testAppDir, Mode: packages.LoadSyntax})
}

func cleanTestApp(t *testing.T, appDirectoryName string) {
	err := os.RemoveAll(appDirectoryName)
	if err != nil {
		t.Logf("Failed to cleanup test app directory %s: %v", appDirectoryName, err)
	}
}

func panicRecovery(t *testing.T) {
	err := recover()
	if err != nil {
		t.Fatalf("%s recovered from panic: %+v\n\n%s", t.Name(), err, debug.Stack())
	}
}

func pseudo_uuid() (uuid string) {

	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		fmt.Println("Error: ", err)
		return
	}

	uuid = fmt.Sprintf("%X-%X-%X-%X-%X", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])

	return
}

// parseFiles decorates source files without loading type information.
func parseFiles(t *testing.T, sources ...string) []*dst.File {
	t.Helper()

	fset := token.NewFileSet()
	files := make([]*dst.File, len(sources))
	for i, src := range sources {
		d := decorator.NewDecoratorWithImports(fset, "testapp", goast.New())
		file, err := d.Parse(src)
		require.NoError(t, err)
		files[i] = file
	}
	return files
}

func restore(t *testing.T, file *dst.File) string {
	t.Helper()

	buf := bytes.NewBuffer([]byte{})
	err := decorator.NewRestorerWithImports("testapp", guess.New()).Fprint(buf, file)
	require.NoError(t, err)
	return buf.String()
}

// instrumentSource instruments a single file and returns the restored source along with the guard names.
func instrumentSource(t *testing.T, cfg Config, src string) (string, []string, error) {
	t.Helper()
	defer panicRecovery(t)

	files := parseFiles(t, src)
	guards, err := Instrument(cfg, nil, files)
	return restore(t, files[0]), guardNames(guards), err
}

func guardNames(guards []Guard) []string {
	names := make([]string, len(guards))
	for i, g := range guards {
		names[i] = g.Name
	}
	return names
}
