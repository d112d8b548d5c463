package offset

// node describes one contiguous range [offset, offset+size).
//
// A live node sits in the neighbor chain. It also sits in exactly one bin list
// while it is free; used nodes keep binPrev and binNext at NoNode.
type node struct {
	offset       uint32
	size         uint32
	binPrev      NodeIndex
	binNext      NodeIndex
	neighborPrev NodeIndex
	neighborNext NodeIndex
	generation   uint32 // bumped on release, on becoming used and on reset
	used         bool
	live         bool // false while the slot is on the free-slot stack
}

// nodeArena is a fixed-capacity pool of nodes plus a stack of unused slots.
// Slots are never added or compacted after construction.
type nodeArena struct {
	nodes []node
	slots []NodeIndex // free-slot stack
	top   int         // number of entries in slots
}

func newNodeArena(capacity int) *nodeArena {
	na := &nodeArena{
		nodes: make([]node, capacity),
		slots: make([]NodeIndex, capacity),
	}
	na.reset()
	return na
}

// reset returns every slot to the stack and bumps all generations so that
// handles issued before the reset can no longer validate.
func (na *nodeArena) reset() {
	n := len(na.nodes)
	for i := range na.nodes {
		gen := na.nodes[i].generation + 1
		na.nodes[i] = node{
			binPrev:      NoNode,
			binNext:      NoNode,
			neighborPrev: NoNode,
			neighborNext: NoNode,
			generation:   gen,
		}
		// Slot 0 ends up on top of the stack.
		na.slots[i] = NodeIndex(n - 1 - i)
	}
	na.top = n
}

// acquire pops a slot and returns it as a live node with no links.
func (na *nodeArena) acquire() (NodeIndex, bool) {
	if na.top == 0 {
		return NoNode, false
	}
	na.top--
	i := na.slots[na.top]

	nd := &na.nodes[i]
	if nd.live {
		corruptf("slot %d on free-slot stack is live", i)
	}
	nd.live = true
	return i, true
}

// release pushes a live slot back onto the stack.
func (na *nodeArena) release(i NodeIndex) {
	nd := na.at(i)
	if !nd.live {
		corruptf("release of slot %d that is not live", i)
	}
	if na.top == len(na.slots) {
		corruptf("free-slot stack overflow releasing %d", i)
	}

	*nd = node{
		binPrev:      NoNode,
		binNext:      NoNode,
		neighborPrev: NoNode,
		neighborNext: NoNode,
		generation:   nd.generation + 1,
	}
	na.slots[na.top] = i
	na.top++
}

// at returns the node in slot i. Out-of-range links are corruption.
func (na *nodeArena) at(i NodeIndex) *node {
	if !na.contains(i) {
		corruptf("node index %d outside arena of %d", i, len(na.nodes))
	}
	return &na.nodes[i]
}

func (na *nodeArena) contains(i NodeIndex) bool { return uint64(i) < uint64(len(na.nodes)) }

// available returns the number of slots on the stack.
func (na *nodeArena) available() int { return na.top }

func (na *nodeArena) capacity() int { return len(na.nodes) }
