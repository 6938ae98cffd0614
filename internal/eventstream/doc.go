// Package eventstream decodes Sysmon logs into per-event field maps.
//
// Every input format implements Source, which yields one field map per
// process-creation event (Sysmon Event ID 1) and nil for any other unit.
// The ingestion loop never needs to know which format it is reading.
//
//   - EVTX: binary Windows event log container
//   - CSV:  EvtxECmd style export with a JSON Payload column
//   - Memory: in-memory units, for tests and synthetic input
package eventstream
