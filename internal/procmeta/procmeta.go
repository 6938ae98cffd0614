package procmeta

import (
	"errors"
	"strconv"
	"strings"

	"github.com/deadbeesec/sysmon-pstree/internal/timesync"
)

// Field names of a decoded process-creation event.
const (
	FieldProcessID        = "ProcessId"
	FieldParentProcessID  = "ParentProcessId"
	FieldImage            = "Image"
	FieldCommandLine      = "CommandLine"
	FieldCurrentDirectory = "CurrentDirectory"
	FieldUser             = "User"
	FieldTimeCreated      = "TimeCreated"
)

// UnknownName is the display name of a record without an Image field.
const UnknownName = "Unknown"

// ErrInvalidPID is returned by FromFields when ProcessId is absent,
// non-numeric or not positive.
var ErrInvalidPID = errors.New("invalid process id")

// ProcessRecord holds one observed process creation.
type ProcessRecord struct {
	PID              int
	ParentPID        int  // Meaningful only when HasParent is set
	HasParent        bool // False when the parent field was missing or zero
	Name             string
	Image            string
	CommandLine      string
	WorkingDirectory string
	User             string
	Timestamp        string // Second precision, see timesync.Truncate

	// Children is derived by the tree builder, never by decoding.
	Children []int
}

// FromFields builds a record from a decoded field map.
func FromFields(fields map[string]string) (*ProcessRecord, error) {
	pid, ok := parsePID(fields[FieldProcessID])
	if !ok {
		return nil, ErrInvalidPID
	}

	rec := &ProcessRecord{
		PID:              pid,
		Image:            fields[FieldImage],
		CommandLine:      fields[FieldCommandLine],
		WorkingDirectory: fields[FieldCurrentDirectory],
		User:             fields[FieldUser],
		Timestamp:        timesync.Truncate(fields[FieldTimeCreated]),
	}
	if ppid, ok := parsePID(fields[FieldParentProcessID]); ok {
		rec.ParentPID = ppid
		rec.HasParent = true
	}

	image, present := fields[FieldImage]
	if !present {
		rec.Name = UnknownName
	} else {
		rec.Name = nameFromImage(image)
	}

	return rec, nil
}

// ParentLabel returns the parent pid as text, or "ROOT" when the record
// has no parent field.
func (r *ProcessRecord) ParentLabel() string {
	if !r.HasParent {
		return "ROOT"
	}
	return strconv.Itoa(r.ParentPID)
}

// nameFromImage returns the last path component of a Windows or POSIX path.
func nameFromImage(image string) string {
	if i := strings.LastIndexAny(image, `\/`); i >= 0 {
		return image[i+1:]
	}
	return image
}

// parsePID parses a positive decimal process id.
func parsePID(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
