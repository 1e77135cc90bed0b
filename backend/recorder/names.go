package recorder

// names allocates object names the way a GL context does: the smallest
// free name first, so a deleted name is handed out again.
type names struct {
	used map[uint32]bool
	next uint32
	free []uint32
	// fresh disables reuse: every name is new.
	fresh bool
}

func newNames(fresh bool) *names {
	return &names{used: make(map[uint32]bool), next: 1, fresh: fresh}
}

func (n *names) alloc() uint32 {
	var id uint32
	if !n.fresh && len(n.free) > 0 {
		best := 0
		for i, f := range n.free {
			if f < n.free[best] {
				best = i
			}
		}
		id = n.free[best]
		n.free = append(n.free[:best], n.free[best+1:]...)
	} else {
		id = n.next
		n.next++
	}
	n.used[id] = true
	return id
}

func (n *names) release(id uint32) bool {
	if !n.used[id] {
		return false
	}
	delete(n.used, id)
	n.free = append(n.free, id)
	return true
}

func (n *names) live() int { return len(n.used) }
