package commands

import (
	"testing"

	"github.com/rina-go/rinad/pkg/controlapi/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnTable(t *testing.T) {
	conns := []client.ConnectionInfo{{PortID: 1, CEPID: 10}}
	table := connTable(conns)
	assert.Equal(t, []string{"PORT ID", "CEP ID"}, table.Headers())
	require.Len(t, table.Rows(), 1)
	assert.Equal(t, []string{"1", "10"}, table.Rows()[0])
}
