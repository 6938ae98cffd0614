// Package procmeta holds the process records reconstructed from
// process-creation events.
//
// ProcessRecord is built in one step from a decoded field map by FromFields
// and is never partially updated afterwards.
//
// Registry stores one record per pid:
//
// Queries (read-only):
//   - Get(pid) - Retrieve a record
//   - All() - All records in insertion order
//   - Len() - Number of distinct pids
//
// Commands (mutations):
//   - Insert(record) - Store a record, replacing any earlier record for the pid
//
// Thread-safe with RWMutex, so concurrent writers are serialized.
package procmeta
