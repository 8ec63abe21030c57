package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/gopackages"
	"github.com/newrelic/go-easy-profiling/internal/console"
	"github.com/schollz/progressbar/v3"
	godiffpatch "github.com/sourcegraph/go-diff-patch"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"
)

// DefaultRuntimeModule is the module that provides the default guard runtime.
const DefaultRuntimeModule = "github.com/newrelic/go-easy-profiling"

// InstrumentationManager maintains state relevant to instrumentation across all packages of an application.
type InstrumentationManager struct {
	config        Config
	runtimeModule string
	userAppPath   string // path to the user's application as provided by the user
	diffFile      string
	progress      io.Writer
	scans         []DependencyScan
	packages      map[string]*PackageState // stores stateful information on packages by ID
}

// PackageState contains state relevant to instrumentation within a single package.
type PackageState struct {
	pkg    *decorator.Package // the package being instrumented
	guards []Guard            // guards inserted into the package, in insertion order
}

// NewInstrumentationManager initializes an InstrumentationManager for a set of loaded packages.
func NewInstrumentationManager(pkgs []*decorator.Package, cfg Config, diffFile, userAppPath string) *InstrumentationManager {
	manager := &InstrumentationManager{
		config:        cfg,
		runtimeModule: DefaultRuntimeModule,
		userAppPath:   userAppPath,
		diffFile:      diffFile,
		packages:      map[string]*PackageState{},
	}

	for _, pkg := range pkgs {
		manager.packages[pkg.ID] = &PackageState{
			pkg: pkg,
		}
	}

	return manager
}

// DetectDependencyIntegrations loads the scans that collect facts about declarations before any body is rewritten.
func (m *InstrumentationManager) DetectDependencyIntegrations() error {
	m.loadDependencyScans(ScanTypeDirectives)
	return nil
}

func (m *InstrumentationManager) loadDependencyScans(scans ...DependencyScan) {
	m.scans = append(m.scans, scans...)
}

// SetRuntimeModule sets the module that must be required by instrumented applications.
func (m *InstrumentationManager) SetRuntimeModule(module string) {
	m.runtimeModule = module
}

// ShowProgress reports instrumentation progress per package to w.
func (m *InstrumentationManager) ShowProgress(w io.Writer) {
	m.progress = w
}

func (m *InstrumentationManager) CreateDiffFile() error {
	f, err := os.Create(m.diffFile)
	f.Close()
	return err
}

// Guards returns the names of every guard inserted so far, sorted.
func (m *InstrumentationManager) Guards() []string {
	var names []string
	for _, state := range m.packages {
		for _, g := range state.guards {
			names = append(names, g.Name)
		}
	}
	slices.Sort(names)
	return names
}

// InstrumentApplication applies instrumentation in place to the dst files stored in the InstrumentationManager.
// This will not generate any changes to the actual source code, just the abstract syntax tree generated from it.
// Packages are instrumented concurrently; a failure in one package does not stop the others.
func (m *InstrumentationManager) InstrumentApplication(ctx context.Context) error {
	if err := m.config.Validate(); err != nil {
		return err
	}

	bar := m.newProgressBar()
	defer bar.Finish()

	var (
		mu   sync.Mutex
		errs []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, id := range m.packageIDs() {
		state := m.packages[id]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := m.instrumentPackage(state)
			bar.Add(1)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("package %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (m *InstrumentationManager) instrumentPackage(state *PackageState) error {
	guards, err := instrument(m.config, state.pkg, state.pkg.Syntax, m.scans...)
	state.guards = guards
	for _, g := range guards {
		console.Info(state.pkg, g.Func, fmt.Sprintf("inserted guard %q", g.Name))
	}
	return err
}

func (m *InstrumentationManager) newProgressBar() *progressbar.ProgressBar {
	w := m.progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(len(m.packages),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(m.progress != nil),
		progressbar.OptionSetDescription("instrumenting packages"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (m *InstrumentationManager) packageIDs() []string {
	ids := make([]string, 0, len(m.packages))
	for id := range m.packages {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// modifiedFiles returns the files of a package that received at least one guard.
func (state *PackageState) modifiedFiles() []*dst.File {
	var files []*dst.File
	for _, file := range state.pkg.Syntax {
		if slices.ContainsFunc(state.guards, func(g Guard) bool { return g.File == file }) {
			files = append(files, file)
		}
	}
	return files
}

// WriteDiff writes out the changes made to every modified file to the diff file.
func (m *InstrumentationManager) WriteDiff() error {
	absAppPath, err := filepath.Abs(m.userAppPath)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.diffFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, id := range m.packageIDs() {
		state := m.packages[id]
		r := decorator.NewRestorerWithImports(state.pkg.PkgPath, gopackages.New(state.pkg.Dir))

		for _, file := range state.modifiedFiles() {
			path := state.pkg.Decorator.Filenames[file]
			originalFile, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			// what this file will be named in the diff file
			diffFileName, err := filepath.Rel(absAppPath, path)
			if err != nil {
				return err
			}

			modifiedFile := bytes.NewBuffer([]byte{})
			if err := r.Fprint(modifiedFile, file); err != nil {
				return fmt.Errorf("failed to restore %s: %w", diffFileName, err)
			}

			patch := godiffpatch.GeneratePatch(diffFileName, string(originalFile), modifiedFile.String())
			if _, err := f.WriteString(patch); err != nil {
				return err
			}
		}
	}
	log.Printf("changes written to %s", m.diffFile)
	return nil
}

// AddRequiredModules makes sure every module containing an instrumented package requires the guard runtime.
func (m *InstrumentationManager) AddRequiredModules() error {
	visited := map[string]bool{}
	for _, id := range m.packageIDs() {
		state := m.packages[id]
		if len(state.guards) == 0 {
			continue
		}

		goMod, err := findGoMod(state.pkg.Dir)
		if err != nil {
			return err
		}
		if visited[goMod] {
			continue
		}
		visited[goMod] = true

		required, err := requiresModule(goMod, m.runtimeModule)
		if err != nil {
			return err
		}
		if required {
			continue
		}

		cmd := exec.Command("go", "get", m.runtimeModule)
		cmd.Dir = filepath.Dir(goMod)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("error getting Go module %s: %w: %s", m.runtimeModule, err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// findGoMod returns the path of the go.mod file of the module containing dir.
func findGoMod(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found for %s", dir)
		}
		dir = parent
	}
}

// requiresModule returns true if the module described by goMod is module or requires it.
func requiresModule(goMod, module string) (bool, error) {
	data, err := os.ReadFile(goMod)
	if err != nil {
		return false, err
	}

	mf, err := modfile.ParseLax(goMod, data, nil)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", goMod, err)
	}
	if mf.Module != nil && mf.Module.Mod.Path == module {
		return true, nil
	}
	for _, req := range mf.Require {
		if req.Mod.Path == module {
			return true, nil
		}
	}
	return false, nil
}
