// Package processtree derives the process ancestry forest from a populated
// procmeta.Registry.
//
// A record is a root when it has no parent pid, or when its parent pid does
// not resolve to a record in the registry (the parent started before capture
// began, or was filtered out). Every other record is appended to its parent's
// Children. Linking runs once, after all insertions, so root classification
// does not depend on insertion order.
//
// Roots and every child list are ordered by Timestamp with a stable sort:
// lexicographic comparison of the normalized timestamp, empty values first,
// ties keeping registry order.
//
// Parent cycles are not rejected at link time. Records whose parent chain
// loops never become roots, so they are unreachable from the forest;
// Unreachable reports them. Nodes refuses to descend into a pid that is
// already on the current path.
package processtree
