package dtcp

import (
	"testing"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCWQueue_PushRefusesAtCapacity(t *testing.T) {
	q := NewCWQueue(2)
	assert.True(t, q.Push(du.Create(1)))
	assert.True(t, q.Push(du.Create(1)))
	assert.False(t, q.Push(du.Create(1)))
	assert.Equal(t, 2, q.Size())
}

func TestCWQueue_UnboundedWhenCapacityZero(t *testing.T) {
	q := NewCWQueue(0)
	for i := 0; i < 100; i++ {
		require.True(t, q.Push(du.Create(1)))
	}
	assert.Equal(t, 100, q.Size())
}

func TestCWQueue_DeliverFreesSpaceAndWakesNotFull(t *testing.T) {
	q := NewCWQueue(1)
	require.True(t, q.Push(du.Create(1)))
	assert.False(t, q.Push(du.Create(1)))

	wake := q.NotFull()
	select {
	case <-wake:
		t.Fatal("NotFull closed before Deliver freed any space")
	default:
	}

	delivered := q.Deliver(1)
	assert.Len(t, delivered, 1)

	select {
	case <-wake:
	default:
		t.Fatal("NotFull did not close after Deliver freed space")
	}
	assert.True(t, q.Push(du.Create(1)))
}
