package eventstream

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":      FormatAuto,
		"auto":  FormatAuto,
		"EVTX":  FormatEVTX,
		" csv ": FormatCSV,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDetectFormat(t *testing.T) {
	got, err := DetectFormat("/cases/host1/Sysmon.EVTX")
	require.NoError(t, err)
	assert.Equal(t, FormatEVTX, got)

	got, err = DetectFormat("export.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, got)

	_, err = DetectFormat("export.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.evtx"), FormatAuto)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestOpen_Directory(t *testing.T) {
	_, err := Open(t.TempDir(), FormatCSV)
	assert.Error(t, err)
}

func TestOpen_CSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("EventId,Payload\n"), 0o600))

	src, err := Open(path, FormatAuto)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpen_ExplicitFormatOverridesExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	require.NoError(t, os.WriteFile(path, []byte("EventId,Payload\n"), 0o600))

	_, err := Open(path, FormatAuto)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	src, err := Open(path, FormatCSV)
	require.NoError(t, err)
	assert.NoError(t, src.Close())
}

func TestMemorySource(t *testing.T) {
	unit := Fields{"ProcessId": "1"}
	src := NewMemory(unit, nil, Fields{"ProcessId": "2"})

	first, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", first["ProcessId"])
	first["ProcessId"] = "mutated"
	assert.Equal(t, "1", unit["ProcessId"], "units are copied")

	second, err := src.Next()
	require.NoError(t, err)
	assert.Nil(t, second)

	_, err = src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, src.Processed())

	require.NoError(t, src.Close())
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
