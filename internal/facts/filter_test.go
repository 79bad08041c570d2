package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterTablesByFiles(t *testing.T) {
	tables := BuildTables(sampleResults())

	filtered := FilterTablesByFiles(tables, map[string]bool{"rtl/top.sv": true})
	require.Len(t, filtered.Files, 1)
	assert.Equal(t, "rtl/top.sv", filtered.Files[0].Path)
	assert.Empty(t, filtered.Ports)
	assert.Len(t, filtered.Instances, 1)
	assert.Len(t, filtered.Connections, 1)
}

func TestFilterTablesByFilesEmptySet(t *testing.T) {
	tables := BuildTables(sampleResults())

	empty := FilterTablesByFiles(tables, nil)
	require.NotNil(t, empty.Files)
	require.NotNil(t, empty.Modules)
	assert.Empty(t, empty.Files)
	assert.Empty(t, empty.Connections)
}

func TestFilterDeltaByFiles(t *testing.T) {
	prev := BuildTables(sampleResults())
	next := BuildTables(sampleResults()[:1])
	delta := ComputeDelta(prev, next)

	filtered := FilterDeltaByFiles(delta, map[string]bool{"third_party/sub.sv": true})
	require.Len(t, filtered.Removed.Files, 1)
	assert.Equal(t, "third_party/sub.sv", filtered.Removed.Files[0].Path)
	assert.Empty(t, filtered.Added.Files)
}
