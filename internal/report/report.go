package report

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deadbeesec/sysmon-pstree/internal/processtree"
	"github.com/deadbeesec/sysmon-pstree/internal/summary"
)

// DefaultTitle is the document and page heading.
const DefaultTitle = "Sysmon Process Tree"

// GeneratedLayout formats the generation time shown in the header.
const GeneratedLayout = "2006-01-02 15:04:05"

// ErrNoDestination is returned when no output path was given.
var ErrNoDestination = errors.New("no output destination")

//go:embed report.html.tmpl
var templateText string

var pageTemplate = template.Must(template.New("report").Parse(templateText))

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape replaces the five reserved markup characters and marks the result
// as safe markup.
func Escape(s string) template.HTML {
	//nolint:gosec // s is escaped above
	return template.HTML(escaper.Replace(s))
}

// Renderer turns a forest into an HTML document.
type Renderer struct {
	title   string
	now     func() time.Time
	printer *message.Printer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the source of the generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// WithTitle overrides DefaultTitle.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		r.title = title
	}
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		title:   DefaultTitle,
		now:     time.Now,
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type page struct {
	Title          string
	Generated      string
	TotalProcesses string
	RootProcesses  string
	ScannedEvents  string
	Nodes          []nodeView
}

type nodeView struct {
	PID      int
	Parent   string
	Name     template.HTML
	Cycle    bool
	Details  []detail
	Children []nodeView
}

type detail struct {
	Label string
	Value template.HTML
}

// Render writes the document for forest to w. sum may be nil.
func (r *Renderer) Render(w io.Writer, forest *processtree.Forest, sum *summary.Summary) error {
	p := page{
		Title:     r.title,
		Generated: r.now().Format(GeneratedLayout),
	}

	var total, roots, scanned int
	if forest != nil {
		total = forest.Size()
		roots = len(forest.Roots())
		for _, n := range forest.Nodes() {
			p.Nodes = append(p.Nodes, view(n))
		}
	}
	if sum != nil {
		scanned = sum.TotalEvents
	}
	p.TotalProcesses = r.number(total)
	p.RootProcesses = r.number(roots)
	p.ScannedEvents = r.number(scanned)

	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func (r *Renderer) number(n int) string {
	return r.printer.Sprintf("%d", n)
}

func view(n *processtree.Node) nodeView {
	rec := n.Record
	v := nodeView{
		PID:    rec.PID,
		Parent: rec.ParentLabel(),
		Name:   Escape(rec.Name),
		Cycle:  n.Cycle,
	}

	for _, d := range []struct{ label, value string }{
		{"CMD", rec.CommandLine},
		{"DIR", rec.WorkingDirectory},
		{"USER", rec.User},
		{"TIME", rec.Timestamp},
	} {
		if d.value != "" {
			v.Details = append(v.Details, detail{Label: d.label, Value: Escape(d.value)})
		}
	}

	for _, child := range n.Children {
		v.Children = append(v.Children, view(child))
	}
	return v
}
