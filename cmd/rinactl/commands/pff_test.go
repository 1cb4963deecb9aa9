package commands

import (
	"testing"

	"github.com/rina-go/rinad/pkg/controlapi/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPFFTable(t *testing.T) {
	entries := []client.PFFEntry{{DestAddr: 1001, NextHopPort: 4}}
	table := pffTable(entries)
	assert.Equal(t, []string{"DEST ADDR", "NEXT HOP PORT"}, table.Headers())
	require.Len(t, table.Rows(), 1)
	assert.Equal(t, []string{"1001", "4"}, table.Rows()[0])
}
