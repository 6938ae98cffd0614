package eventstream

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
)

// CSV column names of an EvtxECmd export.
const (
	columnEventID     = "EventId"
	columnPayload     = "Payload"
	columnTimeCreated = "TimeCreated"
	columnUserName    = "UserName"
)

// CSVSource decodes a CSV export, one row per event.
type CSVSource struct {
	closer    io.Closer
	reader    *csv.Reader
	header    map[string]int
	processed int
	empty     bool
}

// OpenCSV opens a CSV export file.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	src, err := NewCSV(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// NewCSV reads the header row from r.
func NewCSV(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	src := &CSVSource{
		reader: reader,
		header: make(map[string]int),
	}

	names, err := reader.Read()
	if errors.Is(err, io.EOF) {
		src.empty = true
		return src, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, name := range names {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		src.header[strings.TrimSpace(name)] = i
	}
	if _, ok := src.header[columnEventID]; !ok {
		return nil, fmt.Errorf("csv header has no %s column", columnEventID)
	}

	return src, nil
}

// Next implements Source.
func (s *CSVSource) Next() (Fields, error) {
	if s.empty {
		return nil, io.EOF
	}

	row, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv row %d: %w", s.processed+1, err)
	}
	s.processed++

	if strings.TrimSpace(s.column(row, columnEventID)) != "1" {
		return nil, nil
	}

	fields, err := parsePayload(s.column(row, columnPayload))
	if err != nil {
		return nil, nil
	}

	if _, ok := fields[procmeta.FieldUser]; !ok {
		if user := s.column(row, columnUserName); user != "" {
			fields[procmeta.FieldUser] = user
		}
	}
	if ts := s.column(row, columnTimeCreated); ts != "" {
		fields[procmeta.FieldTimeCreated] = ts
	}

	return fields, nil
}

// Processed implements Source.
func (s *CSVSource) Processed() int {
	return s.processed
}

// Close implements Source.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *CSVSource) column(row []string, name string) string {
	i, ok := s.header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

type payloadData struct {
	Name string      `json:"@Name"`
	Text interface{} `json:"#text"`
}

type payload struct {
	EventData struct {
		Data json.RawMessage `json:"Data"`
	} `json:"EventData"`
}

// parsePayload extracts EventData name/value pairs from a Payload column.
// Data is an array of items, or a single item when the event has one field.
func parsePayload(raw string) (Fields, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	var items []payloadData
	data := strings.TrimSpace(string(p.EventData.Data))
	switch {
	case data == "" || data == "null":
	case strings.HasPrefix(data, "["):
		if err := json.Unmarshal(p.EventData.Data, &items); err != nil {
			return nil, fmt.Errorf("decoding payload data: %w", err)
		}
	default:
		var item payloadData
		if err := json.Unmarshal(p.EventData.Data, &item); err != nil {
			return nil, fmt.Errorf("decoding payload data: %w", err)
		}
		items = append(items, item)
	}

	fields := make(Fields, len(items))
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		switch v := item.Text.(type) {
		case nil:
			fields[item.Name] = ""
		case string:
			fields[item.Name] = v
		case float64:
			fields[item.Name] = fmt.Sprintf("%.0f", v)
		default:
			fields[item.Name] = fmt.Sprint(v)
		}
	}
	return fields, nil
}
