package eventstream

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProcessCreateEventID is the Sysmon event id of a process creation.
const ProcessCreateEventID = 1

// Fields maps event data names (ProcessId, Image, ...) to their values.
type Fields = map[string]string

// Source reads one input unit at a time.
type Source interface {
	// Next decodes the next unit. It returns nil Fields for a unit that is
	// not a process creation or is malformed, and io.EOF after the last unit.
	Next() (Fields, error)
	// Processed returns the number of units read so far.
	Processed() int
	Close() error
}

// Format selects a decoder.
type Format string

const (
	FormatAuto Format = "auto"
	FormatEVTX Format = "evtx"
	FormatCSV  Format = "csv"
)

var (
	// ErrSourceNotFound is returned by Open when the input does not exist.
	ErrSourceNotFound = errors.New("input file not found")
	// ErrUnknownFormat is returned when the format cannot be determined.
	ErrUnknownFormat = errors.New("unknown input format")
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatEVTX, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want auto, evtx or csv)", ErrUnknownFormat, s)
	}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".evtx":
		return FormatEVTX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %q, use --format", ErrUnknownFormat, path)
	}
}

// Open returns the decoder for path.
func Open(path string, format Format) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("checking input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %s is a directory", path)
	}

	if format == "" || format == FormatAuto {
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	switch format {
	case FormatEVTX:
		return OpenEVTX(path)
	case FormatCSV:
		return OpenCSV(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
