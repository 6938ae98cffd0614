// Package timesync normalizes event creation times.
//
// Sysmon reports creation times with sub-second precision and a zone
// suffix. Records keep only the first 19 characters (second precision, no
// zone), which compare lexicographically in chronological order as long as
// every value uses the same layout. Converter turns that truncated form back
// into a wall-clock time.Time when a real instant is needed.
package timesync
