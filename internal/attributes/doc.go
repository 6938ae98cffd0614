// Package attributes evaluates user expressions against process records.
//
// Expressions use the expr language and see the record through these names:
//
//	pid, ppid        int (ppid is 0 when the record has no parent)
//	name, image      string
//	cmdline, cwd     string
//	user, timestamp  string
//	fields           map[string]string, the raw decoded event fields
//
// Two consumers:
//   - Filter: a boolean expression deciding whether a record is kept
//   - ResolveTraceID / ResolveParentID: validate ids for span export
//
// Invalid trace IDs are hashed with SHA-256 to produce valid IDs.
// Invalid parent IDs result in a null parent (zero span ID).
package attributes
