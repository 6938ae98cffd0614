// Package report renders a process forest into a single self-contained
// HTML document.
//
// The document carries all of its styling and behavior inline: nodes start
// expanded, any subtree can be toggled, and a case-insensitive search hides
// non-matching nodes while keeping the ancestors of every match visible.
//
// Every value that originates from the event log is passed through Escape
// before it reaches the markup. Command lines in particular are attacker
// influenced.
package report
