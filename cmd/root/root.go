// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"fjacquet/ine-csv/internal/config"
	"fjacquet/ine-csv/internal/container"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile    string
	LogLevel      string
	LogFormat     string
	ExtractionDir string
	ProcessedDir  string
	Delimiter     string
	StrictRegions bool
	ReportFile    string
	MetricsFile   string
}

var (
	// Flags holds the parsed persistent flags.
	Flags = GlobalFlags{}

	appContainer *container.Container
	initOnce     sync.Once

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ine-csv",
		Short: "A CLI tool to download INE statistics and normalize them into CSV files.",
		Long: `ine-csv downloads tables from the INE (Instituto Nacional de Estadística)
JSON API and turns them into tidy CSV files keyed by year and autonomous community.

Each dataset goes through two stages: fetch writes the raw observations to the
extraction directory, process parses the series labels, normalizes region names,
aggregates where needed and writes the final file to the processed directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Assigned here rather than in Cmd's literal: setup reads Cmd, which
	// would otherwise form an initialization cycle.
	Cmd.PersistentPreRunE = setup
}

// Init registers the persistent flags. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		pf := Cmd.PersistentFlags()
		pf.StringVar(&Flags.ConfigFile, "config", "", "Config file (default: config.yaml in $HOME/.ine-csv, .ine-csv or .)")
		pf.StringVar(&Flags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
		pf.StringVar(&Flags.LogFormat, "log-format", "", "Log format (text or json)")
		pf.StringVar(&Flags.ExtractionDir, "extraction-dir", "", "Directory for raw extraction files")
		pf.StringVar(&Flags.ProcessedDir, "processed-dir", "", "Directory for processed files")
		pf.StringVar(&Flags.Delimiter, "csv-delimiter", "", "CSV field delimiter")
		pf.BoolVar(&Flags.StrictRegions, "strict-regions", true, "Fail a dataset when a region name is not mapped")
		pf.StringVar(&Flags.ReportFile, "report", "", "Write a run report to this file (.json, .yaml or .xml)")
		pf.StringVar(&Flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	})
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return err
	}
	ApplyFlags(cfg, Flags, Cmd.PersistentFlags())
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	SetContainer(c)
	return nil
}

// ApplyFlags overrides cfg with every flag set explicitly on the command line.
func ApplyFlags(cfg *config.Config, f GlobalFlags, set *pflag.FlagSet) {
	changed := func(name string) bool {
		flag := set.Lookup(name)
		return flag != nil && flag.Changed
	}
	if changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.LogFormat
	}
	if changed("extraction-dir") {
		cfg.Paths.ExtractionDir = f.ExtractionDir
	}
	if changed("processed-dir") {
		cfg.Paths.ProcessedDir = f.ProcessedDir
	}
	if changed("csv-delimiter") {
		cfg.CSV.Delimiter = f.Delimiter
	}
	if changed("strict-regions") {
		cfg.Processing.StrictRegions = f.StrictRegions
	}
}

// GetContainer returns the container built for the current invocation.
func GetContainer() *container.Container {
	return appContainer
}

// SetContainer replaces the container, for tests that bypass setup.
func SetContainer(c *container.Container) {
	appContainer = c
}
