package processtree

import (
	"slices"
	"strings"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
)

// Forest is the ordered result of linking a registry.
type Forest struct {
	reg   *procmeta.Registry
	roots []*procmeta.ProcessRecord
}

// Node is one rendered position in the forest.
type Node struct {
	Record   *procmeta.ProcessRecord
	Depth    int
	Cycle    bool // Record is already an ancestor on this path; Children is empty
	Children []*Node
}

// Build links every record to its parent and returns the sorted forest.
// Children lists are rebuilt from scratch, so calling Build again on the
// same registry gives the same result.
func Build(reg *procmeta.Registry) *Forest {
	records := reg.All()
	for _, rec := range records {
		rec.Children = nil
	}

	var roots []*procmeta.ProcessRecord
	for _, rec := range records {
		if rec.HasParent {
			if parent := reg.Get(rec.ParentPID); parent != nil {
				parent.Children = append(parent.Children, rec.PID)
				continue
			}
		}
		roots = append(roots, rec)
	}

	slices.SortStableFunc(roots, byTimestamp)
	for _, rec := range records {
		sortChildren(reg, rec)
	}

	return &Forest{
		reg:   reg,
		roots: roots,
	}
}

// byTimestamp orders records by normalized timestamp; empty sorts first.
func byTimestamp(a, b *procmeta.ProcessRecord) int {
	return strings.Compare(a.Timestamp, b.Timestamp)
}

func sortChildren(reg *procmeta.Registry, rec *procmeta.ProcessRecord) {
	if len(rec.Children) < 2 {
		return
	}
	slices.SortStableFunc(rec.Children, func(a, b int) int {
		return byTimestamp(reg.Get(a), reg.Get(b))
	})
}

// Roots returns the root records in display order.
func (f *Forest) Roots() []*procmeta.ProcessRecord {
	return f.roots
}

// Registry returns the registry the forest was built from.
func (f *Forest) Registry() *procmeta.Registry {
	return f.reg
}

// Children resolves rec's child pids to records, in display order.
func (f *Forest) Children(rec *procmeta.ProcessRecord) []*procmeta.ProcessRecord {
	children := make([]*procmeta.ProcessRecord, 0, len(rec.Children))
	for _, pid := range rec.Children {
		if child := f.reg.Get(pid); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// Nodes expands the forest depth-first into nested nodes.
// A pid met again while it is still on the current path becomes a leaf
// with Cycle set.
func (f *Forest) Nodes() []*Node {
	onPath := make(map[int]bool)
	nodes := make([]*Node, 0, len(f.roots))
	for _, root := range f.roots {
		nodes = append(nodes, f.expand(root, 0, onPath))
	}
	return nodes
}

func (f *Forest) expand(rec *procmeta.ProcessRecord, depth int, onPath map[int]bool) *Node {
	node := &Node{Record: rec, Depth: depth}
	if onPath[rec.PID] {
		node.Cycle = true
		return node
	}

	onPath[rec.PID] = true
	for _, child := range f.Children(rec) {
		node.Children = append(node.Children, f.expand(child, depth+1, onPath))
	}
	delete(onPath, rec.PID)

	return node
}

// Unreachable returns the pids, in registry order, that cannot be reached
// from any root. Only parent cycles and their descendants end up here.
func (f *Forest) Unreachable() []int {
	seen := make(map[int]bool, f.reg.Len())
	stack := make([]int, 0, len(f.roots))
	for _, root := range f.roots {
		stack = append(stack, root.PID)
	}
	for len(stack) > 0 {
		pid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if rec := f.reg.Get(pid); rec != nil {
			stack = append(stack, rec.Children...)
		}
	}

	var unreachable []int
	for _, rec := range f.reg.All() {
		if !seen[rec.PID] {
			unreachable = append(unreachable, rec.PID)
		}
	}
	return unreachable
}

// Size returns the number of records in the registry behind the forest.
func (f *Forest) Size() int {
	return f.reg.Len()
}
