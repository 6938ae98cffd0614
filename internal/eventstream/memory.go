package eventstream

import "io"

// MemorySource replays units held in memory. A nil unit stands for an
// event that is not a process creation.
type MemorySource struct {
	units     []Fields
	processed int
	closed    bool
}

// NewMemory creates a source over units.
func NewMemory(units ...Fields) *MemorySource {
	return &MemorySource{units: units}
}

// Next implements Source.
func (s *MemorySource) Next() (Fields, error) {
	if s.closed || s.processed >= len(s.units) {
		return nil, io.EOF
	}
	unit := s.units[s.processed]
	s.processed++
	if unit == nil {
		return nil, nil
	}

	fields := make(Fields, len(unit))
	for k, v := range unit {
		fields[k] = v
	}
	return fields, nil
}

// Processed implements Source.
func (s *MemorySource) Processed() int {
	return s.processed
}

// Close implements Source.
func (s *MemorySource) Close() error {
	s.closed = true
	return nil
}
