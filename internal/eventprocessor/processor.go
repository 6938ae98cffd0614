package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/deadbeesec/sysmon-pstree/internal/attributes"
	"github.com/deadbeesec/sysmon-pstree/internal/eventstream"
	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
	"github.com/deadbeesec/sysmon-pstree/internal/summary"
)

// DefaultProgressInterval is the number of units between progress callbacks.
const DefaultProgressInterval = 1000

// ProgressFunc receives periodic ingestion progress.
type ProgressFunc func(s summary.Summary)

// Options configures a Processor.
type Options struct {
	// MaxEvents stops ingestion after this many units; 0 means no cap.
	MaxEvents int
	// Filter drops records for which it evaluates false; nil keeps all.
	Filter *attributes.Filter
	// Progress is called every ProgressInterval units, if set.
	Progress         ProgressFunc
	ProgressInterval int
	Logger           *slog.Logger
}

// Processor coordinates event ingestion into a registry.
type Processor struct {
	registry *procmeta.Registry
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewProcessor creates a new event processor writing into registry.
func NewProcessor(registry *procmeta.Registry, opts Options) *Processor {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		registry: registry,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Run reads src until it is exhausted, the event cap is reached, or ctx is
// cancelled. The returned summary is valid even when an error is returned;
// records inserted before the error stay in the registry.
func (p *Processor) Run(ctx context.Context, src eventstream.Source) (*summary.Summary, error) {
	start := p.now()
	sum := &summary.Summary{}
	finish := func() {
		sum.TotalEvents = src.Processed()
		sum.Elapsed = p.now().Sub(start)
	}

	for {
		if err := ctx.Err(); err != nil {
			finish()
			return sum, err
		}

		if p.opts.MaxEvents > 0 && src.Processed() >= p.opts.MaxEvents {
			sum.Capped = true
			p.logger.Debug("event cap reached", "max_events", p.opts.MaxEvents)
			break
		}

		fields, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			finish()
			return sum, fmt.Errorf("decoding event %d: %w", src.Processed()+1, err)
		}

		if fields != nil {
			sum.ProcessEvents++
			p.handleProcessCreate(fields, sum)
		}

		if p.opts.Progress != nil && src.Processed()%p.opts.ProgressInterval == 0 {
			sum.TotalEvents = src.Processed()
			sum.Elapsed = p.now().Sub(start)
			p.opts.Progress(*sum)
		}
	}

	finish()
	return sum, nil
}

// handleProcessCreate converts, filters and stores one process creation.
func (p *Processor) handleProcessCreate(fields eventstream.Fields, sum *summary.Summary) {
	rec, err := procmeta.FromFields(fields)
	if err != nil {
		sum.Invalid++
		p.logger.Debug("dropping process event", "process_id", fields[procmeta.FieldProcessID], "error", err)
		return
	}

	if p.opts.Filter.Enabled() {
		keep, err := p.opts.Filter.Keep(rec, fields)
		if err != nil {
			p.logger.Debug("filter evaluation failed", "pid", rec.PID, "error", err)
		}
		if !keep {
			sum.Filtered++
			return
		}
	}

	p.registry.Insert(rec)
	sum.Inserted++
}
