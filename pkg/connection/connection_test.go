package connection

import (
	"testing"

	"github.com/rina-go/rinad/pkg/idalloc"
	"github.com/stretchr/testify/assert"
)

func TestNew_StartsNascent(t *testing.T) {
	c := New(7)
	assert.EqualValues(t, 7, c.PortID)
	assert.True(t, idalloc.IsBad(c.SourceCEPID))
	assert.False(t, c.HasDestinationCEPID())
}

func TestHasDestinationCEPID_AfterLearned(t *testing.T) {
	c := New(7)
	c.DestinationCEPID = 3
	assert.True(t, c.HasDestinationCEPID())
}
