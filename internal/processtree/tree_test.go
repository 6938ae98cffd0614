package processtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadbeesec/sysmon-pstree/internal/procmeta"
)

func rec(pid, ppid int, ts string) *procmeta.ProcessRecord {
	return &procmeta.ProcessRecord{
		PID:       pid,
		ParentPID: ppid,
		HasParent: ppid > 0,
		Name:      "p.exe",
		Timestamp: ts,
	}
}

func registryOf(records ...*procmeta.ProcessRecord) *procmeta.Registry {
	reg := procmeta.NewRegistry()
	for _, r := range records {
		reg.Insert(r)
	}
	return reg
}

func pidsOf(records []*procmeta.ProcessRecord) []int {
	pids := make([]int, 0, len(records))
	for _, r := range records {
		pids = append(pids, r.PID)
	}
	return pids
}

func TestBuild_Empty(t *testing.T) {
	forest := Build(procmeta.NewRegistry())

	assert.Empty(t, forest.Roots())
	assert.Empty(t, forest.Nodes())
	assert.Empty(t, forest.Unreachable())
	assert.Equal(t, 0, forest.Size())
}

func TestBuild_ParentChild(t *testing.T) {
	reg := registryOf(
		rec(4, 0, "2024-01-01T00:00:00"),
		rec(1000, 4, "2024-01-01T00:00:05"),
	)

	forest := Build(reg)

	require.Len(t, forest.Roots(), 1)
	assert.Equal(t, 4, forest.Roots()[0].PID)
	assert.Equal(t, []int{1000}, reg.Get(4).Children)
	assert.Empty(t, reg.Get(1000).Children)
}

func TestBuild_DanglingParentIsRoot(t *testing.T) {
	reg := registryOf(rec(50, 999, ""))

	forest := Build(reg)

	assert.Equal(t, []int{50}, pidsOf(forest.Roots()))
}

func TestBuild_RootClassificationIgnoresInsertionOrder(t *testing.T) {
	// Child inserted before its parent.
	reg := registryOf(
		rec(200, 100, "2024-01-01T00:00:02"),
		rec(100, 0, "2024-01-01T00:00:01"),
		rec(300, 555, "2024-01-01T00:00:03"),
	)

	forest := Build(reg)

	assert.Equal(t, []int{100, 300}, pidsOf(forest.Roots()))
	assert.Equal(t, []int{200}, reg.Get(100).Children)
}

func TestBuild_RootsSortedByTimestamp(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:09"),
		rec(2, 0, ""),
		rec(3, 0, "2024-01-01T00:00:01"),
		rec(4, 0, ""),
	)

	forest := Build(reg)

	assert.Equal(t, []int{2, 4, 3, 1}, pidsOf(forest.Roots()))
}

func TestBuild_ChildSortStability(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(10, 1, "2024-01-01T00:00:01"), // t1
		rec(11, 1, ""),                    // t2, empty
		rec(12, 1, "2024-01-01T00:00:03"), // t3
	)

	first := Build(reg)
	assert.Equal(t, []int{11, 10, 12}, reg.Get(1).Children)
	assert.Equal(t, []int{11, 10, 12}, pidsOf(first.Children(reg.Get(1))))

	second := Build(reg)
	assert.Equal(t, []int{11, 10, 12}, reg.Get(1).Children, "rebuild must not duplicate children")
	assert.Equal(t, pidsOf(first.Roots()), pidsOf(second.Roots()))
}

func TestBuild_TiesKeepRegistryOrder(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(30, 1, "2024-01-01T00:00:05"),
		rec(20, 1, "2024-01-01T00:00:05"),
		rec(10, 1, "2024-01-01T00:00:05"),
	)

	Build(reg)

	assert.Equal(t, []int{30, 20, 10}, reg.Get(1).Children)
}

func TestBuild_OverwrittenParentKeepsChildren(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(2, 1, "2024-01-01T00:00:01"),
	)
	// A second creation record for pid 1 replaces the first in full.
	reg.Insert(&procmeta.ProcessRecord{PID: 1, Name: "reused.exe", Timestamp: "2024-01-01T00:00:09"})

	forest := Build(reg)

	require.Len(t, forest.Roots(), 1)
	assert.Equal(t, "reused.exe", forest.Roots()[0].Name)
	assert.Equal(t, []int{2}, reg.Get(1).Children)
}

func TestForest_Nodes(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(2, 1, "2024-01-01T00:00:01"),
		rec(3, 2, "2024-01-01T00:00:02"),
		rec(4, 1, "2024-01-01T00:00:03"),
	)

	nodes := Build(reg).Nodes()

	require.Len(t, nodes, 1)
	root := nodes[0]
	assert.Equal(t, 1, root.Record.PID)
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 2)
	assert.Equal(t, 2, root.Children[0].Record.PID)
	assert.Equal(t, 4, root.Children[1].Record.PID)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, 3, root.Children[0].Children[0].Record.PID)
	assert.Equal(t, 2, root.Children[0].Children[0].Depth)
	assert.False(t, root.Children[0].Children[0].Cycle)
}

func TestForest_NodesStopsAtCycle(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(2, 1, "2024-01-01T00:00:01"),
	)
	forest := Build(reg)
	// Corrupt the derived edges so that 2 points back at its ancestor.
	reg.Get(2).Children = []int{1}

	nodes := forest.Nodes()

	require.Len(t, nodes, 1)
	child := nodes[0].Children[0]
	require.Len(t, child.Children, 1)
	marker := child.Children[0]
	assert.Equal(t, 1, marker.Record.PID)
	assert.True(t, marker.Cycle)
	assert.Empty(t, marker.Children)
}

func TestForest_UnreachableCycle(t *testing.T) {
	reg := registryOf(
		rec(1, 0, "2024-01-01T00:00:00"),
		rec(10, 11, "2024-01-01T00:00:01"),
		rec(11, 10, "2024-01-01T00:00:02"),
		rec(12, 11, "2024-01-01T00:00:03"),
		rec(13, 13, "2024-01-01T00:00:04"),
	)

	forest := Build(reg)

	assert.Equal(t, []int{1}, pidsOf(forest.Roots()))
	assert.Equal(t, []int{10, 11, 12, 13}, forest.Unreachable())
	assert.Len(t, forest.Nodes(), 1)
}
