package verify

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/joshuapare/offsetkit/internal/smallfloat"
	"github.com/joshuapare/offsetkit/offset"
)

// ValidationError describes a violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Node    int64 // Arena slot involved, -1 if N/A
	Details map[string]interface{}
	Err     error // Underlying walk error, if any
}

func (e *ValidationError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("%s at node %d: %s", e.Type, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Snapshot validates all invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func Snapshot(s *offset.Snapshot) error {
	if err := Partition(s); err != nil {
		return err
	}
	if err := Accounting(s); err != nil {
		return err
	}
	if err := Bitmaps(s); err != nil {
		return err
	}
	if err := BinMembership(s); err != nil {
		return err
	}
	return Coalesced(s)
}

// Partition checks that the neighbor chain covers [0, Size) exactly once,
// in increasing offset order, with consistent back links, and that every
// live node is on the chain.
func Partition(s *offset.Snapshot) error {
	reached := bitset.New(uint(len(s.Nodes)))
	prev := offset.NoNode
	var next uint64
	var bad *ValidationError

	err := s.WalkNeighbors(func(n offset.NodeInfo) bool {
		switch {
		case n.NeighborPrev != prev:
			bad = &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("neighborPrev is %d, expected %d", n.NeighborPrev, prev),
				Node:    int64(n.Index),
			}
		case n.Size == 0:
			bad = &ValidationError{Type: "Partition", Message: "empty range in neighbor chain", Node: int64(n.Index)}
		case uint64(n.Offset) != next:
			bad = &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("range starts at %d, previous range ends at %d", n.Offset, next),
				Node:    int64(n.Index),
				Details: map[string]interface{}{"previous": prev},
			}
		}
		reached.Set(uint(n.Index))
		prev = n.Index
		next = n.End()
		return bad == nil
	})
	if err != nil {
		return chainError("Partition", err)
	}
	if bad != nil {
		return bad
	}

	if next != uint64(s.Size) {
		return &ValidationError{
			Type:    "Partition",
			Message: fmt.Sprintf("chain ends at %d, space size is %d", next, s.Size),
			Node:    int64(prev),
		}
	}

	live := 0
	for _, n := range s.Nodes {
		if !n.Live {
			continue
		}
		live++
		if !reached.Test(uint(n.Index)) {
			return &ValidationError{
				Type:    "Partition",
				Message: fmt.Sprintf("live node [%d, %d) is not on the neighbor chain", n.Offset, n.End()),
				Node:    int64(n.Index),
			}
		}
	}

	if live+s.FreeSlots != len(s.Nodes) {
		return &ValidationError{
			Type:    "Partition",
			Message: fmt.Sprintf("%d live nodes + %d free slots != capacity %d", live, s.FreeSlots, len(s.Nodes)),
			Node:    -1,
		}
	}
	return nil
}

// Accounting checks that the free byte counter equals the sum of free node
// sizes.
func Accounting(s *offset.Snapshot) error {
	var free uint64
	for _, n := range s.Nodes {
		if n.Live && !n.Used {
			free += uint64(n.Size)
		}
	}
	if free != uint64(s.FreeBytes) {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("free nodes sum to %d, counter says %d", free, s.FreeBytes),
			Node:    -1,
			Details: map[string]interface{}{"calculated": free, "stored": s.FreeBytes},
		}
	}
	return nil
}

// Bitmaps checks that a leaf bit is set iff its bin has a head, and a top bit
// is set iff its leaf word is non-zero.
func Bitmaps(s *offset.Snapshot) error {
	for bin := uint32(0); bin < smallfloat.NumLeafBins; bin++ {
		if s.BinSet(bin) != s.BinHeads[bin].Valid() {
			return &ValidationError{
				Type:    "Bitmaps",
				Message: fmt.Sprintf("bin %d: leaf bit %v, head %d", bin, s.BinSet(bin), s.BinHeads[bin]),
				Node:    -1,
			}
		}
	}
	for top := range smallfloat.NumTopBins {
		bit := s.TopBits&(1<<top) != 0
		if bit != (s.LeafBits[top] != 0) {
			return &ValidationError{
				Type:    "Bitmaps",
				Message: fmt.Sprintf("top bit %d is %v, leaf word is %08b", top, bit, s.LeafBits[top]),
				Node:    -1,
			}
		}
	}
	return nil
}

// BinMembership checks that every live free node is on exactly the list of
// its floor-mapped bin, that lists hold only free nodes with consistent back
// links, and that used nodes carry no bin links.
func BinMembership(s *offset.Snapshot) error {
	listed := bitset.New(uint(len(s.Nodes)))

	for bin := uint32(0); bin < smallfloat.NumLeafBins; bin++ {
		prev := offset.NoNode
		var bad *ValidationError
		err := s.WalkBin(bin, func(n offset.NodeInfo) bool {
			switch {
			case listed.Test(uint(n.Index)):
				bad = &ValidationError{Type: "BinMembership", Message: fmt.Sprintf("node listed again in bin %d", bin), Node: int64(n.Index)}
			case n.Used:
				bad = &ValidationError{Type: "BinMembership", Message: fmt.Sprintf("used node in bin %d", bin), Node: int64(n.Index)}
			case smallfloat.RoundDown(n.Size) != bin:
				bad = &ValidationError{
					Type:    "BinMembership",
					Message: fmt.Sprintf("size %d belongs in bin %d, found in bin %d", n.Size, smallfloat.RoundDown(n.Size), bin),
					Node:    int64(n.Index),
				}
			case n.BinPrev != prev:
				bad = &ValidationError{
					Type:    "BinMembership",
					Message: fmt.Sprintf("binPrev is %d, expected %d", n.BinPrev, prev),
					Node:    int64(n.Index),
				}
			}
			listed.Set(uint(n.Index))
			prev = n.Index
			return bad == nil
		})
		if err != nil {
			return chainError("BinMembership", err)
		}
		if bad != nil {
			return bad
		}
	}

	for _, n := range s.Nodes {
		if !n.Live {
			continue
		}
		if n.Used && (n.BinPrev.Valid() || n.BinNext.Valid()) {
			return &ValidationError{Type: "BinMembership", Message: "used node has bin links", Node: int64(n.Index)}
		}
		if !n.Used && !listed.Test(uint(n.Index)) {
			return &ValidationError{
				Type:    "BinMembership",
				Message: fmt.Sprintf("free node [%d, %d) is in no bin list", n.Offset, n.End()),
				Node:    int64(n.Index),
			}
		}
	}
	return nil
}

// Coalesced checks that no two neighbors are both free.
func Coalesced(s *offset.Snapshot) error {
	var bad *ValidationError
	prevFree := false
	prev := offset.NoNode
	err := s.WalkNeighbors(func(n offset.NodeInfo) bool {
		if prevFree && !n.Used {
			bad = &ValidationError{
				Type:    "Coalesced",
				Message: fmt.Sprintf("free node follows free node %d", prev),
				Node:    int64(n.Index),
			}
			return false
		}
		prevFree = !n.Used
		prev = n.Index
		return true
	})
	if err != nil {
		return chainError("Coalesced", err)
	}
	if bad != nil {
		return bad
	}
	return nil
}

func chainError(typ string, err error) error {
	if !errors.Is(err, offset.ErrCorruptChain) {
		return err
	}
	return &ValidationError{Type: typ, Message: err.Error(), Node: -1, Err: err}
}
