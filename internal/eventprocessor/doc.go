// Package eventprocessor drives ingestion: it pulls units from an
// eventstream.Source and turns process-creation events into registry records.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│      eventstream.Source (EVTX / CSV)    │
//	└─────────────────┬───────────────────────┘
//	                  │ Fields, or nil for other events
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventprocessor                        │
//	│   - Stops at the event cap              │
//	│   - Counts every unit                   │
//	└─────────┬───────────────────────────────┘
//	          │
//	          ├──→ procmeta.FromFields ──→ drops bad pids (Invalid)
//	          │
//	          ├──→ attributes.Filter ────→ drops rejected records (Filtered)
//	          │
//	          └──→ procmeta.Registry ────→ last write wins (Inserted)
//
// Per-event problems are counted in the summary and never abort the run.
// Only decoder errors (corrupt or truncated input) and context cancellation
// are returned.
package eventprocessor
