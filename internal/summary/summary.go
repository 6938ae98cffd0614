// Package summary aggregates the counters of one ingestion run.
package summary

import "time"

// Summary holds the counters surfaced to the operator and the report header.
type Summary struct {
	TotalEvents   int           // Input units read, qualifying or not
	ProcessEvents int           // Units the decoder recognized as process creation
	Inserted      int           // Records stored in the registry, overwrites included
	Invalid       int           // Process-creation units dropped for a bad pid
	Filtered      int           // Records rejected by the filter expression
	Capped        bool          // Reading stopped at the configured event cap
	Elapsed       time.Duration // Wall-clock time of the ingestion phase
}

// EventsPerSecond returns the ingestion throughput, or 0 before any time
// has elapsed.
func (s *Summary) EventsPerSecond() float64 {
	if s == nil || s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TotalEvents) / s.Elapsed.Seconds()
}

// Skipped returns the number of units that were read but not recognized.
func (s *Summary) Skipped() int {
	if s == nil {
		return 0
	}
	return s.TotalEvents - s.ProcessEvents
}
