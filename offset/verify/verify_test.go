package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/offsetkit/offset"
)

// fragmented returns the snapshot of an allocator holding
// [used 100][free 100][used 100][free tail].
func fragmented(t *testing.T) (*offset.Snapshot, []offset.Allocation) {
	t.Helper()
	a, err := offset.New(1024, 16)
	require.NoError(t, err)

	var al []offset.Allocation
	for range 3 {
		h, err := a.Allocate(100)
		require.NoError(t, err)
		al = append(al, h)
	}
	require.NoError(t, a.Free(al[1]))
	return a.Snapshot(), al
}

func requireValidationError(t *testing.T, err error, typ string) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T: %v", err, err)
	assert.Equal(t, typ, ve.Type)
	return ve
}

func TestValidSnapshot(t *testing.T) {
	s, _ := fragmented(t)
	require.NoError(t, Snapshot(s))
}

func TestPartitionDetectsGap(t *testing.T) {
	s, al := fragmented(t)
	s.Nodes[al[2].Metadata].Offset += 4

	ve := requireValidationError(t, Snapshot(s), "Partition")
	assert.Equal(t, int64(al[2].Metadata), ve.Node)
}

func TestPartitionDetectsShortChain(t *testing.T) {
	s, _ := fragmented(t)
	s.Size += 16

	requireValidationError(t, Partition(s), "Partition")
}

func TestPartitionDetectsLostSlot(t *testing.T) {
	s, _ := fragmented(t)
	s.FreeSlots--

	ve := requireValidationError(t, Partition(s), "Partition")
	assert.Equal(t, int64(-1), ve.Node)
}

func TestPartitionDetectsCycle(t *testing.T) {
	s, al := fragmented(t)
	head, err := s.Head()
	require.NoError(t, err)
	s.Nodes[al[2].Metadata].NeighborNext = head

	err = Snapshot(s)
	requireValidationError(t, err, "Partition")
	assert.ErrorIs(t, err, offset.ErrCorruptChain)
}

func TestAccountingDetectsDrift(t *testing.T) {
	s, _ := fragmented(t)
	s.FreeBytes += 8

	ve := requireValidationError(t, Snapshot(s), "Accounting")
	assert.Equal(t, uint32(s.FreeBytes), ve.Details["stored"])
}

func TestBitmapsDetectStrayBits(t *testing.T) {
	s, _ := fragmented(t)
	s.LeafBits[0] |= 1

	requireValidationError(t, Snapshot(s), "Bitmaps")

	s, _ = fragmented(t)
	s.TopBits |= 1
	requireValidationError(t, Bitmaps(s), "Bitmaps")
}

func TestBinMembershipDetectsUsedNodeLinks(t *testing.T) {
	s, al := fragmented(t)
	s.Nodes[al[0].Metadata].BinNext = offset.NodeIndex(al[1].Metadata)

	ve := requireValidationError(t, BinMembership(s), "BinMembership")
	assert.Equal(t, int64(al[0].Metadata), ve.Node)
}

func TestBinMembershipDetectsUnlistedFreeNode(t *testing.T) {
	s, al := fragmented(t)
	// Drop the freed range from its list by pointing the head past it.
	for bin, head := range s.BinHeads {
		if head == offset.NodeIndex(al[1].Metadata) {
			s.BinHeads[bin] = s.Nodes[head].BinNext
		}
	}

	requireValidationError(t, BinMembership(s), "BinMembership")
}

func TestBinMembershipDetectsWrongBin(t *testing.T) {
	s, al := fragmented(t)
	s.Nodes[al[1].Metadata].Size = 5000

	requireValidationError(t, BinMembership(s), "BinMembership")
}

func TestCoalescedDetectsAdjacentFree(t *testing.T) {
	s, al := fragmented(t)
	s.Nodes[al[2].Metadata].Used = false

	ve := requireValidationError(t, Coalesced(s), "Coalesced")
	assert.Equal(t, int64(al[2].Metadata), ve.Node)
}

func TestValidationErrorMessage(t *testing.T) {
	e := &ValidationError{Type: "Partition", Message: "boom", Node: 3}
	assert.Equal(t, "Partition at node 3: boom", e.Error())

	e = &ValidationError{Type: "Accounting", Message: "off", Node: -1}
	assert.Equal(t, "Accounting: off", e.Error())
	assert.Nil(t, e.Unwrap())
}
