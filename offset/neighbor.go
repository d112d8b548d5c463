package offset

// linkAfter splices node i into the neighbor chain directly after prev.
func (a *Allocator) linkAfter(prev, i NodeIndex) {
	p := a.nodes.at(prev)
	nd := a.nodes.at(i)

	nd.neighborPrev = prev
	nd.neighborNext = p.neighborNext
	if p.neighborNext.Valid() {
		a.nodes.at(p.neighborNext).neighborPrev = i
	}
	p.neighborNext = i
}

// unlinkNeighbor splices node i out of the neighbor chain.
func (a *Allocator) unlinkNeighbor(i NodeIndex) {
	nd := a.nodes.at(i)

	if nd.neighborPrev.Valid() {
		a.nodes.at(nd.neighborPrev).neighborNext = nd.neighborNext
	}
	if nd.neighborNext.Valid() {
		a.nodes.at(nd.neighborNext).neighborPrev = nd.neighborPrev
	}
	nd.neighborPrev = NoNode
	nd.neighborNext = NoNode
}

// mergePrev absorbs the previous neighbor of i if it is free.
func (a *Allocator) mergePrev(i NodeIndex) bool {
	nd := a.nodes.at(i)
	p := nd.neighborPrev
	if !p.Valid() {
		return false
	}
	pn := a.nodes.at(p)
	if pn.used {
		return false
	}
	if pn.offset+pn.size != nd.offset {
		corruptf("neighbors %d and %d are not adjacent", p, i)
	}

	a.removeFromBin(p)
	nd.offset = pn.offset
	nd.size += pn.size
	a.unlinkNeighbor(p)
	a.nodes.release(p)
	return true
}

// mergeNext absorbs the next neighbor of i if it is free.
func (a *Allocator) mergeNext(i NodeIndex) bool {
	nd := a.nodes.at(i)
	n := nd.neighborNext
	if !n.Valid() {
		return false
	}
	nn := a.nodes.at(n)
	if nn.used {
		return false
	}
	if nd.offset+nd.size != nn.offset {
		corruptf("neighbors %d and %d are not adjacent", i, n)
	}

	a.removeFromBin(n)
	nd.size += nn.size
	a.unlinkNeighbor(n)
	a.nodes.release(n)
	return true
}
