package eventstream

import (
	"io"
	"testing"

	"github.com/0xrawsec/golang-evtx/evtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
)

func evtxEvent(system, data evtx.GoEvtxMap) *evtx.GoEvtxMap {
	event := evtx.GoEvtxMap{
		"Event": evtx.GoEvtxMap{
			"System":    system,
			"EventData": data,
		},
	}
	return &event
}

func systemWithID(eventID string) evtx.GoEvtxMap {
	return evtx.GoEvtxMap{
		"EventID": eventID,
		"TimeCreated": evtx.GoEvtxMap{
			"SystemTime": "2024-01-01T00:00:05.0000001Z",
		},
	}
}

func evtxSourceOf(events ...*evtx.GoEvtxMap) *EVTXSource {
	ch := make(chan *evtx.GoEvtxMap, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &EVTXSource{events: ch, close: func() error { return nil }}
}

func drainEVTX(t *testing.T, src *EVTXSource) []Fields {
	t.Helper()
	var units []Fields
	for {
		fields, err := src.Next()
		if err == io.EOF {
			return units
		}
		require.NoError(t, err)
		units = append(units, fields)
	}
}

func TestEVTXSource_ProcessCreation(t *testing.T) {
	src := evtxSourceOf(evtxEvent(systemWithID("1"), evtx.GoEvtxMap{
		"ProcessId":       "1000",
		"ParentProcessId": "4",
		"Image":           `C:\Temp\evil.exe`,
		"IntegrityLevel":  "High",
	}))

	units := drainEVTX(t, src)
	require.Len(t, units, 1)
	assert.Equal(t, Fields{
		"ProcessId":       "1000",
		"ParentProcessId": "4",
		"Image":           `C:\Temp\evil.exe`,
		"IntegrityLevel":  "High",
		"TimeCreated":     "2024-01-01T00:00:05.0000001Z",
	}, units[0])
	assert.Equal(t, 1, src.Processed())
	assert.NoError(t, src.Close())
}

func TestEVTXSource_OtherEventIDSkipped(t *testing.T) {
	src := evtxSourceOf(evtxEvent(systemWithID("3"), evtx.GoEvtxMap{"ProcessId": "1000"}))

	units := drainEVTX(t, src)
	require.Len(t, units, 1)
	assert.Nil(t, units[0])
	assert.Equal(t, 1, src.Processed())
}

func TestEVTXSource_MissingEventIDSkipped(t *testing.T) {
	broken := evtxEvent(evtx.GoEvtxMap{}, evtx.GoEvtxMap{"ProcessId": "7"})
	valid := evtxEvent(systemWithID("1"), evtx.GoEvtxMap{"ProcessId": "1000"})
	src := evtxSourceOf(broken, nil, valid)

	var units []Fields
	require.NotPanics(t, func() { units = drainEVTX(t, src) })
	require.Len(t, units, 3)
	assert.Nil(t, units[0])
	assert.Nil(t, units[1])
	assert.Equal(t, "1000", units[2]["ProcessId"])
	assert.Equal(t, 3, src.Processed())
}

func TestEVTXSource_EmptyValuesDropped(t *testing.T) {
	src := evtxSourceOf(evtxEvent(systemWithID("1"), evtx.GoEvtxMap{
		"ProcessId": "12",
		"Image":     "",
		"User":      nil,
	}))

	units := drainEVTX(t, src)
	require.Len(t, units, 1)
	assert.NotContains(t, units[0], "Image")
	assert.NotContains(t, units[0], "User")

	rec, err := procmeta.FromFields(units[0])
	require.NoError(t, err)
	assert.Equal(t, procmeta.UnknownName, rec.Name)
}

func TestEVTXSource_TimestampTruncated(t *testing.T) {
	src := evtxSourceOf(evtxEvent(systemWithID("1"), evtx.GoEvtxMap{"ProcessId": "5"}))

	units := drainEVTX(t, src)
	require.Len(t, units, 1)

	rec, err := procmeta.FromFields(units[0])
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:05", rec.Timestamp)
}

func TestEVTXSource_MissingEventData(t *testing.T) {
	src := evtxSourceOf(evtxEvent(systemWithID("1"), nil))

	units := drainEVTX(t, src)
	require.Len(t, units, 1)
	require.NotNil(t, units[0])

	_, err := procmeta.FromFields(units[0])
	assert.ErrorIs(t, err, procmeta.ErrInvalidPID)
}
