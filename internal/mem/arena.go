// Package mem provides the heap/stack allocator collaborator spec.md
// §6 requires of the core: alloc(size) -> address | null, free(address),
// and a fixed-size stack allocator. Adapted from the teacher's
// segment-freelist heap (src/mazboot/golang/main/heap.go) into a
// host-portable byte arena so internal/proc is exercisable under
// `go test` without a real machine heap.
package mem

import "sync"

// StackSize is the fixed size of a kernel stack region, per spec.md
// §6 ("a region of fixed size STACK_SIZE"). Chosen as a multiple of
// a 4KiB page, per spec.md §6's configuration constraint.
const StackSize = 16 * 4096

// segment is the free-list header for one region of the arena,
// mirroring the teacher's heapSegment (next/prev/isAllocated/size).
// offset is the region's start within the arena's backing slice.
type segment struct {
	next, prev *segment
	offset     int
	size       int
	allocated  bool
}

// Arena is a bump/freelist allocator over a fixed-size backing slice.
// It plays the role of the external heap allocator spec.md §6 treats
// as a collaborator: Alloc/Free in terms of Addr values, not raw
// pointers, so it runs unmodified on any host.
type Arena struct {
	mu      sync.Mutex
	backing []byte
	head    *segment
}

// NewArena allocates a backing region of the given size and
// initializes it as a single free segment, mirroring heapInit.
func NewArena(size int) *Arena {
	return &Arena{
		backing: make([]byte, size),
		head:    &segment{size: size},
	}
}

// Addr is a logical address into an Arena: the arena plus the
// allocation's segment. The zero Addr is null.
type Addr struct {
	arena *Arena
	seg   *segment
}

// Valid reports whether a is a non-null address.
func (a Addr) Valid() bool { return a.arena != nil && a.seg != nil }

// Bytes returns the backing slice for a's allocation.
func (a Addr) Bytes() []byte {
	if !a.Valid() {
		return nil
	}
	return a.arena.backing[a.seg.offset : a.seg.offset+a.seg.size]
}

// alignUp rounds size up to the nearest multiple of align.
func alignUp(size, align int) int {
	if r := size % align; r != 0 {
		size += align - r
	}
	return size
}

const allocAlign = 16 // spec.md §6's HEAP_ALIGNMENT-equivalent

// Alloc returns size bytes from the arena's free list, first-fit, or
// the null Addr if no segment is large enough. Mirrors kmalloc.
func (a *Arena) Alloc(size int) Addr {
	if size <= 0 {
		return Addr{}
	}
	size = alignUp(size, allocAlign)

	a.mu.Lock()
	defer a.mu.Unlock()

	for s := a.head; s != nil; s = s.next {
		if s.allocated || s.size < size {
			continue
		}
		if s.size > size+allocAlign {
			// Split: carve the tail off as a new free segment.
			rest := &segment{
				offset: s.offset + size,
				size:   s.size - size,
				next:   s.next,
				prev:   s,
			}
			if rest.next != nil {
				rest.next.prev = rest
			}
			s.next = rest
			s.size = size
		}
		s.allocated = true
		return Addr{arena: a, seg: s}
	}
	return Addr{}
}

// Free returns a's region to the free list, coalescing with
// immediate free neighbors. A null Addr is a safe no-op.
func (a *Arena) Free(addr Addr) {
	if !addr.Valid() || addr.arena != a {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	s := addr.seg
	s.allocated = false

	if n := s.next; n != nil && !n.allocated {
		s.size += n.size
		s.next = n.next
		if s.next != nil {
			s.next.prev = s
		}
	}
	if p := s.prev; p != nil && !p.allocated {
		p.size += s.size
		p.next = s.next
		if p.next != nil {
			p.next.prev = p
		}
	}
}

// AllocStack returns a StackSize-sized region, the top of which
// (Addr plus StackSize) is where a new kernel stack's initial frame
// is laid out, per spec.md §6.
func (a *Arena) AllocStack() Addr {
	return a.Alloc(StackSize)
}
