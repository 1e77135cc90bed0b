package shadow

import "fmt"

// Stats counts the work done and avoided by a Renderer.
type Stats struct {
	// Draws is the number of draw calls issued to the device.
	Draws uint64

	// ProgramBinds counts UseProgram calls.
	ProgramBinds uint64

	// LayoutBinds counts BindVertexArray calls.
	LayoutBinds uint64
	// LayoutCreates counts vertex arrays created for new signatures.
	LayoutCreates uint64
	// LayoutReissues counts cached layouts whose pointers were issued again
	// because a buffer was reallocated.
	LayoutReissues uint64
	// LayoutEvictions counts layouts removed by the cache limit.
	LayoutEvictions uint64
	LayoutHits      uint64
	LayoutMisses    uint64

	UniformUploads uint64
	UniformSkips   uint64

	BufferAllocs   uint64
	BufferUpdates  uint64
	BufferReallocs uint64

	// StateChanges counts fixed-function calls (enable, blend, cull, depth).
	StateChanges uint64

	// EmptyBindings counts buffers that contributed no attribute to a draw.
	EmptyBindings uint64
}

// HitRate returns the vertex layout cache hit rate, 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.LayoutHits + s.LayoutMisses
	if total == 0 {
		return 0
	}
	return float64(s.LayoutHits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("draws=%d program=%d layout(bind=%d create=%d reissue=%d evict=%d hit=%.0f%%) "+
		"uniform(upload=%d skip=%d) buffer(alloc=%d update=%d realloc=%d) state=%d",
		s.Draws, s.ProgramBinds, s.LayoutBinds, s.LayoutCreates, s.LayoutReissues, s.LayoutEvictions,
		s.HitRate()*100, s.UniformUploads, s.UniformSkips,
		s.BufferAllocs, s.BufferUpdates, s.BufferReallocs, s.StateChanges)
}

func (s *Stats) countSync(r SyncResult) {
	switch r {
	case SyncAllocated:
		s.BufferAllocs++
	case SyncUpdated:
		s.BufferUpdates++
	case SyncReallocated:
		s.BufferReallocs++
	}
}
