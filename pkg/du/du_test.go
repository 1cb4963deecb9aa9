package du

import (
	"testing"

	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/pci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() (*dtconst.DataTransferConstants, *pci.OffsetTable) {
	dt := &dtconst.DataTransferConstants{}
	dtconst.ApplyDefaults(dt)
	return dt, pci.NewOffsetTable(*dt)
}

func TestCreate_PayloadOnly(t *testing.T) {
	d := Create(100)
	require.True(t, IsOk(d))
	assert.Equal(t, 100, d.Len())
	assert.False(t, d.HasPCI())
}

func TestEncapDecap_RoundTrip(t *testing.T) {
	dt, table := testProfile()
	d := Create(50)
	d.Configure(dt, table)
	require.NoError(t, d.Encap(pci.PDUTypeDT))
	require.True(t, d.HasPCI())

	p := d.PCI()
	require.NotNil(t, p)
	require.NoError(t, p.Format(1, 2, 10, 20, 5, 1, 0, d.Len(), pci.PDUTypeDT))

	decoded, err := d.Decap()
	require.NoError(t, err)
	assert.Equal(t, 50, d.Len(), "payload length should be restored after decap pulls the header")

	sn, err := decoded.SequenceNumber()
	require.NoError(t, err)
	assert.EqualValues(t, 5, sn)
}

func TestDecap_UnknownType(t *testing.T) {
	dt, table := testProfile()
	d := Create(10)
	d.Configure(dt, table)
	require.NoError(t, d.Encap(pci.PDUTypeDT))
	_, err := d.Decap()
	assert.Error(t, err, "a zero-valued PCI has PDUTypeNone and should fail decap")
}

func TestHeadGrowShrink_Invariance(t *testing.T) {
	d := Create(30)
	orig := append([]byte(nil), d.Data()...)

	require.NoError(t, d.HeadGrow(8))
	assert.Equal(t, 38, d.Len())

	require.NoError(t, d.HeadShrink(8))
	assert.Equal(t, 30, d.Len())
	assert.Equal(t, orig, d.Data())
}

func TestTailGrowShrink(t *testing.T) {
	d := Create(10)
	require.NoError(t, d.TailGrow(5))
	assert.Equal(t, 15, d.Len())
	require.NoError(t, d.TailShrink(5))
	assert.Equal(t, 10, d.Len())
}

func TestHeadGrow_ForcesReallocationBeyondHeadroom(t *testing.T) {
	d := Create(10)
	require.NoError(t, d.HeadGrow(defaultHeadroom+50))
	assert.Equal(t, 10+defaultHeadroom+50, d.Len())
}

func TestDup_SharesBufferIndependentViews(t *testing.T) {
	d := Create(20)
	assert.EqualValues(t, 1, d.RefCount())

	clone := d.Dup()
	assert.EqualValues(t, 2, d.RefCount())
	assert.EqualValues(t, 2, clone.RefCount())

	require.NoError(t, clone.TailGrow(10))
	assert.Equal(t, 30, clone.Len())
	assert.Equal(t, 20, d.Len(), "growing a clone must not affect the original's view")

	d.Destroy()
	assert.EqualValues(t, 1, clone.RefCount())
	clone.Destroy()
}

func TestCreateEFCP_ReservesHeaderOnly(t *testing.T) {
	dt, table := testProfile()
	d, err := CreateEFCP(pci.PDUTypeACK, dt, table)
	require.NoError(t, err)

	size, err := table.Size(pci.PDUTypeACK)
	require.NoError(t, err)
	assert.Equal(t, size, d.Len())
	assert.True(t, d.HasPCI())
}
