package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/newrelic/go-easy-profiling/internal/codegen"
	"github.com/newrelic/go-easy-profiling/parser"
	"gopkg.in/yaml.v3"
)

// Default Config Values
const (
	defaultPackageName  = "./..."
	defaultPackagePath  = ""
	defaultDiffFileName = "flame-instrumentation.diff"
	defaultDiscipline   = "scope"
)

// RuntimeConfig describes the guard runtime inserted code calls into.
type RuntimeConfig struct {
	ImportPath string `yaml:"import_path"`
	Module     string `yaml:"module"`
	StartFunc  string `yaml:"start"`
	EndMethod  string `yaml:"end"`
}

// CLIConfig holds every setting of an instrumentation run. Values come from the
// defaults, then an optional YAML file, then command line flags.
type CLIConfig struct {
	Debug                bool          `yaml:"debug"`
	PackagePath          string        `yaml:"path"`
	PackageName          string        `yaml:"packages"`
	DiffFile             string        `yaml:"diff"`
	EntryDirective       string        `yaml:"entry"`
	OptOutDirective      string        `yaml:"opt_out"`
	Discipline           string        `yaml:"discipline"`
	RestrictedDirectives []string      `yaml:"restricted_directives"`
	Runtime              RuntimeConfig `yaml:"runtime"`
}

func setConfigValue(input *string, defaultValue string) string {
	if input != nil && *input != "" {
		return strings.TrimSpace(*input)
	}
	return defaultValue
}

// NewCLIConfig returns a config holding the default value of every setting.
func NewCLIConfig() *CLIConfig {
	rt := codegen.DefaultRuntime()
	return &CLIConfig{
		PackagePath:          defaultPackagePath,
		PackageName:          defaultPackageName, // dont touch this
		EntryDirective:       parser.DefaultEntryDirective,
		OptOutDirective:      parser.DefaultOptOutDirective,
		Discipline:           defaultDiscipline,
		RestrictedDirectives: append([]string(nil), parser.DefaultRestrictedDirectives...),
		Runtime: RuntimeConfig{
			ImportPath: rt.ImportPath,
			Module:     parser.DefaultRuntimeModule,
			StartFunc:  rt.StartFunc,
			EndMethod:  rt.EndMethod,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults. Unknown keys are an error.
func LoadConfig(path string) (*CLIConfig, error) {
	cfg := NewCLIConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.PackagePath = setConfigValue(&cfg.PackagePath, defaultPackagePath)
	cfg.PackageName = setConfigValue(&cfg.PackageName, defaultPackageName)
	cfg.Discipline = setConfigValue(&cfg.Discipline, defaultDiscipline)
	return cfg, nil
}

// DefaultDiffFile returns the diff file path used when none is configured.
func DefaultDiffFile() string {
	return defaultDiffFileName
}

// Validate checks that the config can be used for a run.
func (cfg *CLIConfig) Validate() error {
	if cfg.PackagePath == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(cfg.PackagePath); err != nil {
		return fmt.Errorf("path \"%s\" is invalid: %w", cfg.PackagePath, err)
	}
	if cfg.Runtime.Module != "" && !strings.HasPrefix(cfg.Runtime.ImportPath, cfg.Runtime.Module) {
		return fmt.Errorf("runtime import path %q is not part of module %q", cfg.Runtime.ImportPath, cfg.Runtime.Module)
	}

	pc, err := cfg.ParserConfig()
	if err != nil {
		return err
	}
	return pc.Validate()
}

// ParserConfig converts the CLI settings into the configuration of the instrumentation engine.
func (cfg *CLIConfig) ParserConfig() (parser.Config, error) {
	discipline, err := codegen.ParseDiscipline(cfg.Discipline)
	if err != nil {
		return parser.Config{}, err
	}

	pc := parser.DefaultConfig()
	pc.EntryDirective = cfg.EntryDirective
	pc.OptOutDirective = cfg.OptOutDirective
	pc.RestrictedDirectives = cfg.RestrictedDirectives
	pc.Discipline = discipline
	pc.Runtime = codegen.Runtime{
		ImportPath: cfg.Runtime.ImportPath,
		StartFunc:  cfg.Runtime.StartFunc,
		EndMethod:  cfg.Runtime.EndMethod,
	}
	return pc, nil
}
