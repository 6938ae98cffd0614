// sysmon-pstree reconstructs process ancestry from Sysmon process creation
// events and renders it as a searchable HTML report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deadbeesec/sysmon-pstree/internal/attributes"
	"github.com/deadbeesec/sysmon-pstree/internal/config"
	"github.com/deadbeesec/sysmon-pstree/internal/eventprocessor"
	"github.com/deadbeesec/sysmon-pstree/internal/eventstream"
	"github.com/deadbeesec/sysmon-pstree/internal/otel"
	"github.com/deadbeesec/sysmon-pstree/internal/output"
	"github.com/deadbeesec/sysmon-pstree/internal/processtree"
	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
	"github.com/deadbeesec/sysmon-pstree/internal/progress"
	"github.com/deadbeesec/sysmon-pstree/internal/report"
	"github.com/deadbeesec/sysmon-pstree/internal/summary"
	"github.com/deadbeesec/sysmon-pstree/internal/timesync"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// spanContext carries the trace placement of exported spans.
type spanContext struct {
	traceID  trace.TraceID
	parent   trace.SpanContext
	warnings []attribute.KeyValue
}

// resolveSpanContext turns the --trace-id and --parent-id values into span
// identifiers. A parent without a trace is ignored.
func resolveSpanContext(cfg *config.Config) (*spanContext, error) {
	traceID, warnings, err := attributes.ResolveTraceID(cfg.TraceID)
	if err != nil {
		return nil, err
	}
	parentID, parentWarnings := attributes.ResolveParentID(cfg.ParentID)
	warnings = append(warnings, parentWarnings...)

	sc := &spanContext{traceID: traceID, warnings: warnings}
	if traceID.IsValid() && parentID.IsValid() {
		sc.parent = trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     parentID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
	} else if parentID.IsValid() {
		slog.Warn("ignoring --parent-id without --trace-id")
	}
	return sc, nil
}

// setupOTEL initializes the OTEL provider and returns it with a cleanup function.
func setupOTEL(ctx context.Context, sc *spanContext) (*otel.Provider, func(), error) {
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return nil, nil, err
	}

	var opts []sdktrace.TracerProviderOption
	if sc.traceID.IsValid() {
		opts = append(opts, sdktrace.WithIDGenerator(otel.FixedTraceID(sc.traceID)))
	}

	provider, err := otel.InitProvider(ctx, otelCfg, fmt.Sprintf("%s (%s)", version, commit), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutting down OTEL provider", "error", err)
		}
	}
	return provider, cleanup, nil
}

// ingest reads the whole input into registry.
func ingest(ctx context.Context, cfg *config.Config, filter *attributes.Filter, registry *procmeta.Registry) (*summary.Summary, error) {
	src, err := eventstream.Open(cfg.Input, cfg.Format)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.Warn("closing input", "error", err)
		}
	}()

	fmt.Printf("\nParsing: %s\n", cfg.Input)
	fmt.Println("Extracting Sysmon EventID=1 only")

	reporter := progress.New()
	defer reporter.Done()

	processor := eventprocessor.NewProcessor(registry, eventprocessor.Options{
		MaxEvents: cfg.MaxEvents,
		Filter:    filter,
		Progress:  reporter.Update,
	})
	return processor.Run(ctx, src)
}

func printSummary(sum *summary.Summary) {
	p := message.NewPrinter(language.English)
	p.Printf("\nCompleted!\n")
	p.Printf("Total events: %d\n", sum.TotalEvents)
	p.Printf("Process events: %d\n", sum.ProcessEvents)
	p.Printf("Time: %.2f sec\n", sum.Elapsed.Seconds())
	if sum.Elapsed > 0 {
		p.Printf("Speed: %.0f events/sec\n", sum.EventsPerSecond())
	}
	if sum.Capped {
		p.Printf("Stopped at --max-events limit\n")
	}
}

func run() error {
	cfg, err := config.ParseArgs(os.Args, version, commit, date)
	if errors.Is(err, config.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Debug("starting sysmon-pstree", "version", version, "commit", commit, "built", date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter, err := attributes.NewFilter(cfg.Filter)
	if err != nil {
		return err
	}

	sc, err := resolveSpanContext(cfg)
	if err != nil {
		return err
	}

	provider, cleanupOTEL, err := setupOTEL(ctx, sc)
	if err != nil {
		return err
	}
	defer cleanupOTEL()
	if cfg.OTELExport && !provider.Enabled() {
		slog.Warn("--otel-export has no effect without OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	tracer := provider.Tracer()

	registry := procmeta.NewRegistry()
	ingestCtx, span := tracer.Start(ctx, "ingest")
	sum, err := ingest(ingestCtx, cfg, filter, registry)
	span.End()
	if err != nil {
		return err
	}
	printSummary(sum)
	slog.Debug("ingestion counters",
		"inserted", sum.Inserted,
		"invalid", sum.Invalid,
		"filtered", sum.Filtered,
		"skipped", sum.Skipped(),
	)

	fmt.Println("Building tree...")
	_, span = tracer.Start(ctx, "build")
	forest := processtree.Build(registry)
	span.End()
	if unreachable := forest.Unreachable(); len(unreachable) > 0 {
		slog.Warn("processes in parent cycles are not part of any tree", "count", len(unreachable), "pids", unreachable)
	}

	fmt.Printf("Generating HTML: %s\n", cfg.HTMLPath)
	_, span = tracer.Start(ctx, "render")
	err = report.NewRenderer().WriteFile(cfg.HTMLPath, forest, sum)
	span.End()
	if err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", cfg.HTMLPath)

	if cfg.OTELExport && provider.Enabled() {
		exporter := output.NewSpanExporter(tracer, timesync.NewConverter(), sc.parent, sc.warnings)
		n := exporter.Export(ctx, forest, sum)
		slog.Info("exported process spans", "count", n)
	}

	if cfg.AutoOpen {
		path, err := filepath.Abs(cfg.HTMLPath)
		if err != nil {
			return fmt.Errorf("resolving report path: %w", err)
		}
		if err := browser.OpenFile(path); err != nil {
			slog.Warn("could not open report in browser", "error", err)
		}
	}

	return nil
}
