// Package config parses the command line and environment of sysmon-pstree.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/deadbeesec/sysmon-pstree/internal/eventstream"
)

// DefaultHTMLPath is where the report is written when no path is given.
const DefaultHTMLPath = "process_tree.html"

// ErrHelp is returned after help or version output was printed.
var ErrHelp = errors.New("help requested")

// Config holds the parsed command-line configuration
type Config struct {
	// Input is the Sysmon log to read
	Input string
	// Format selects the decoder for Input
	Format eventstream.Format
	// MaxEvents caps the number of input events read; 0 means no cap
	MaxEvents int
	// HTMLPath is the report destination
	HTMLPath string
	// Filter is an optional expression records must satisfy
	Filter string
	// AutoOpen opens the report in the default browser
	AutoOpen bool
	// OTELExport sends the forest as spans to the configured collector
	OTELExport bool
	// TraceID is the trace for exported spans (32 hex chars, or any string to hash)
	TraceID string
	// ParentID is the span exported spans hang under (16 hex chars)
	ParentID string
	// LogLevel is the minimum slog level
	LogLevel slog.Level
}

// EnvConfig holds defaults read from the environment.
type EnvConfig struct {
	HTMLPath  string `env:"SYSMON_PSTREE_HTML" envDefault:"process_tree.html"`
	MaxEvents int    `env:"SYSMON_PSTREE_MAX_EVENTS" envDefault:"0"`
	Format    string `env:"SYSMON_PSTREE_FORMAT" envDefault:"auto"`
	Filter    string `env:"SYSMON_PSTREE_FILTER"`
	TraceID   string `env:"SYSMON_PSTREE_TRACE_ID"`
	ParentID  string `env:"SYSMON_PSTREE_PARENT_ID"`
	LogLevel  string `env:"SYSMON_PSTREE_LOG_LEVEL" envDefault:"info"`
}

// ParseEnvConfig reads EnvConfig from the environment.
func ParseEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// ParseArgs parses command-line arguments and returns a Config.
// Expected format: program_name [flags] <input-file>
// Flags override environment defaults. Help and version output go to
// stdout and yield ErrHelp.
func ParseArgs(args []string, version, commit, date string) (*Config, error) {
	return parseArgs(args, version, commit, date, os.Stdout)
}

func parseArgs(args []string, version, commit, date string, out io.Writer) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}
	programName := filepath.Base(args[0])

	envCfg, err := ParseEnvConfig()
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	maxEvents := fs.IntP("max-events", "n", envCfg.MaxEvents, "stop after reading this many events (0 = all)")
	htmlPath := fs.StringP("html", "H", envCfg.HTMLPath, "report output path")
	format := fs.StringP("format", "f", envCfg.Format, "input format: auto, evtx or csv")
	filter := fs.StringP("filter", "F", envCfg.Filter, "only keep processes matching this expression, e.g. 'user != \"SYSTEM\"'")
	autoOpen := fs.BoolP("auto-open", "o", false, "open the report in the default browser")
	otelExport := fs.Bool("otel-export", false, "export the process forest as OpenTelemetry spans")
	traceID := fs.StringP("trace-id", "t", envCfg.TraceID, "trace ID for exported spans")
	parentID := fs.StringP("parent-id", "p", envCfg.ParentID, "parent span ID for exported spans")
	logLevel := fs.String("log-level", envCfg.LogLevel, "log level: debug, info, warn or error")
	showVersion := fs.Bool("version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [flags] <input-file>\n\n", programName)
		fmt.Fprintf(out, "Builds a searchable HTML process tree from Sysmon process creation events (EVTX or CSV).\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, err
	}

	if *showVersion {
		fmt.Fprintf(out, "%s %s (commit: %s, built: %s)\n", programName, version, commit, date)
		return nil, ErrHelp
	}

	if fs.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one input file, got %d\nUsage: %s [flags] <input-file>", fs.NArg(), programName)
	}
	if *maxEvents < 0 {
		return nil, fmt.Errorf("--max-events must not be negative, got %d", *maxEvents)
	}
	if strings.TrimSpace(*htmlPath) == "" {
		return nil, fmt.Errorf("--html must not be empty")
	}

	parsedFormat, err := eventstream.ParseFormat(*format)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}

	return &Config{
		Input:      fs.Arg(0),
		Format:     parsedFormat,
		MaxEvents:  *maxEvents,
		HTMLPath:   *htmlPath,
		Filter:     *filter,
		AutoOpen:   *autoOpen,
		OTELExport: *otelExport,
		TraceID:    *traceID,
		ParentID:   *parentID,
		LogLevel:   level,
	}, nil
}
