package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/dst/decorator"
	"github.com/newrelic/go-easy-profiling/cli"
	"github.com/newrelic/go-easy-profiling/internal/console"
	"github.com/newrelic/go-easy-profiling/parser"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"
)

const (
	defaultPackagePath    = ""
	defaultOutputFilePath = ""
	defaultConfigFile     = ""
	defaultDiscipline     = "scope"
	defaultDebug          = false
)

var (
	debug       bool
	packagePath string
	diffFile    string
	configFile  string
	discipline  string
	runtimePath string
)

var instrumentCmd = &cobra.Command{
	Use:   "instrument",
	Short: "add profiling guards",
	Long:  "add profiling guards to the annotated functions of existing application source files",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(Instrument(cmd))
	},
}

// validateOutputFile checks that the custom output path is valid
func validateOutputFile(path string) error {
	if filepath.Ext(path) != ".diff" {
		return errors.New("output file must have a .diff extension")
	}

	_, err := os.Stat(filepath.Dir(path))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("output file directory does not exist: %v", err)
	}

	return nil
}

// setOutputFilePath returns a complete output file path based on the provided
// diffFile flag value. If the flag is empty, the default path will be based
// on the applicationPath.
//
// This will fail if the packagePath is not valid, and must be run after
// validateing it.
func setOutputFilePath(outputFilePath, applicationPath string) (string, error) {
	if outputFilePath == "" {
		outputFilePath = filepath.Join(applicationPath, cli.DefaultDiffFile())
	}

	err := validateOutputFile(outputFilePath)
	if err != nil {
		return "", err
	}

	return outputFilePath, nil
}

// loadConfig reads the config file, if any, and applies the flags that were set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (*cli.CLIConfig, error) {
	cfg, err := cli.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("path") {
		cfg.PackagePath = packagePath
	}
	if flags.Changed("diff") {
		cfg.DiffFile = diffFile
	}
	if flags.Changed("discipline") {
		cfg.Discipline = discipline
	}
	if flags.Changed("runtime") {
		cfg.Runtime.ImportPath = runtimePath
		cfg.Runtime.Module = ""
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	return cfg, nil
}

func Instrument(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outputFile, err := setOutputFilePath(cfg.DiffFile, cfg.PackagePath)
	if err != nil {
		return err
	}

	parserConfig, err := cfg.ParserConfig()
	if err != nil {
		return err
	}

	if cfg.Debug {
		console.EnableConsolePrinter(cfg.PackagePath)
	}

	pkgs, err := decorator.Load(&packages.Config{Dir: cfg.PackagePath, Mode: packages.LoadSyntax}, cfg.PackageName)
	if err != nil {
		return err
	}
	if err := packageErrors(pkgs); err != nil {
		return err
	}

	manager := parser.NewInstrumentationManager(pkgs, parserConfig, outputFile, cfg.PackagePath)
	if cfg.Runtime.Module != "" {
		manager.SetRuntimeModule(cfg.Runtime.Module)
	}
	if !cfg.Debug {
		manager.ShowProgress(cmd.ErrOrStderr())
	}

	err = manager.CreateDiffFile()
	if err != nil {
		return err
	}

	err = manager.DetectDependencyIntegrations()
	if err != nil {
		return err
	}

	err = manager.InstrumentApplication(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Runtime.Module != "" {
		err = manager.AddRequiredModules()
		if err != nil {
			return err
		}
	}

	err = manager.WriteDiff()
	if err != nil {
		return err
	}

	console.WriteAll()
	return nil
}

// packageErrors joins the errors reported while loading packages.
func packageErrors(pkgs []*decorator.Package) error {
	var errs []error
	for _, pkg := range pkgs {
		for _, err := range pkg.Errors {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func init() {
	instrumentCmd.Flags().BoolVar(&debug, "debug", defaultDebug, "enable debugging output")
	instrumentCmd.Flags().StringVar(&packagePath, "path", defaultPackagePath, "specify package path")
	instrumentCmd.Flags().StringVar(&diffFile, "diff", defaultOutputFilePath, "specify diff output file path")
	instrumentCmd.Flags().StringVar(&configFile, "config", defaultConfigFile, "read settings from a YAML config file")
	instrumentCmd.Flags().StringVar(&discipline, "discipline", defaultDiscipline, "how guards end: \"scope\" (defer) or \"explicit\"")
	instrumentCmd.Flags().StringVar(&runtimePath, "runtime", "", "import path of an alternative guard runtime package")
	cobra.MarkFlagFilename(instrumentCmd.Flags(), "diff", ".diff")         // for file completion
	cobra.MarkFlagFilename(instrumentCmd.Flags(), "config", "yaml", "yml") // for file completion

	rootCmd.AddCommand(instrumentCmd)
}
