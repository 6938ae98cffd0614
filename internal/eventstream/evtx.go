package eventstream

import (
	"fmt"
	"io"

	"github.com/0xrawsec/golang-evtx/evtx"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
	"github.com/deadbeesec/sysmon-pstree/internal/timesync"
)

var systemTimePath = evtx.Path("/Event/System/TimeCreated/SystemTime")

// EVTXSource decodes a binary .evtx file in record order.
type EVTXSource struct {
	events    chan *evtx.GoEvtxMap
	close     func() error
	processed int
}

// OpenEVTX opens an .evtx file. Files that were not closed cleanly by the
// event log service are accepted.
func OpenEVTX(path string) (*EVTXSource, error) {
	ef, err := evtx.OpenDirty(path)
	if err != nil {
		return nil, fmt.Errorf("opening evtx file: %w", err)
	}

	return &EVTXSource{
		events: ef.Events(),
		close:  ef.Close,
	}, nil
}

// Next implements Source.
func (s *EVTXSource) Next() (Fields, error) {
	event, ok := <-s.events
	if !ok {
		return nil, io.EOF
	}
	s.processed++

	if event == nil || !isProcessCreate(event) {
		return nil, nil
	}
	return eventFields(event), nil
}

// Processed implements Source.
func (s *EVTXSource) Processed() int {
	return s.processed
}

// Close implements Source. Events still queued by the parser are drained
// in the background so its goroutines can exit.
func (s *EVTXSource) Close() error {
	go func(events chan *evtx.GoEvtxMap) {
		for range events {
		}
	}(s.events)
	return s.close()
}

// isProcessCreate reads the event id from either System layout. Records
// without a readable id are not process creations.
func isProcessCreate(event *evtx.GoEvtxMap) bool {
	eid, err := event.GetInt(&evtx.EventIDPath)
	if err != nil {
		if eid, err = event.GetInt(&evtx.EventIDPath2); err != nil {
			return false
		}
	}
	return eid == ProcessCreateEventID
}

// eventFields copies every EventData value verbatim, plus the creation time.
func eventFields(event *evtx.GoEvtxMap) Fields {
	root, _ := asMap(*event)
	ev, _ := asMap(root["Event"])
	data, _ := asMap(ev["EventData"])

	fields := make(Fields, len(data)+1)
	for name, value := range data {
		if text := toString(value); text != "" {
			fields[name] = text
		}
	}

	if created, err := event.GetTime(&systemTimePath); err == nil {
		fields[procmeta.FieldTimeCreated] = timesync.FormatSystemTime(created)
	} else if value, ok := lookupString(event, &systemTimePath); ok {
		fields[procmeta.FieldTimeCreated] = value
	}

	return fields
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case evtx.GoEvtxMap:
		return m, true
	case *evtx.GoEvtxMap:
		if m == nil {
			return nil, false
		}
		return *m, true
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// lookupString returns the value at path as text, whatever its binary type.
func lookupString(event *evtx.GoEvtxMap, path *evtx.GoEvtxPath) (string, bool) {
	if value, err := event.GetString(path); err == nil {
		return value, true
	}
	elem, err := event.Get(path)
	if err != nil || elem == nil || *elem == nil {
		return "", false
	}
	return toString(*elem), true
}
