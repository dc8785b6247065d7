package proc

import "sync"

// Registry is the global list of every descriptor created and not
// yet destroyed, spec.md §3's "global registry", plus the monotonic
// pid counter spec.md §4.B requires ("assigns the next pid
// atomically"). The zero value is not ready for use; call
// NewRegistry.
//
// Mutation is guarded by a mutex standing in for spec.md §5's
// "disabling interrupts across critical sections" — this core runs
// hosted, under goroutines rather than a single uniprocessor
// instruction stream, so a mutex is the faithful equivalent rather
// than a literal cli/sti pair.
type Registry struct {
	mu      sync.Mutex
	all     *list
	nextPID uint64
}

// NewRegistry creates an empty registry with the pid counter at 2,
// the value spec.md §4.B's process_init leaves behind after
// reserving pid 1 for the bootstrap descriptor.
func NewRegistry() *Registry {
	return &Registry{all: newList(), nextPID: 2}
}

// insert links d into the registry at the tail, per spec.md §4.B
// point 5 ("links into the global registry at the tail"). The
// bootstrap descriptor is the one exception, inserted at the head by
// Init.
func (r *Registry) insert(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all.PushTail(d, &d.globalLink)
}

// insertHead links d at the head, used only for the bootstrap
// descriptor (spec.md §4.B: "initializes the global registry,
// inserts itself at the head").
func (r *Registry) insertHead(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.globalLink.owner = d
	d.globalLink.InsertBefore(r.all.sentinel.next)
}

// remove unlinks d from the registry, used by Reap once a descriptor
// has been swept (spec.md §9's resolution of the end-of-process
// leak open question).
func (r *Registry) remove(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.globalLink.Unlink()
}

// allocPID returns the next pid and advances the counter, done with
// the registry lock held to satisfy spec.md §5's "pid allocation" as
// a critical section.
func (r *Registry) allocPID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid := r.nextPID
	r.nextPID++
	return pid
}

// Descriptors returns a snapshot slice of every live descriptor, head
// to tail, for inspection (tests, a reaper sweep, debug dumps).
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Descriptor
	for l := r.all.sentinel.next; l != &r.all.sentinel; l = l.next {
		out = append(out, l.owner)
	}
	return out
}

// Len reports the number of descriptors currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for l := r.all.sentinel.next; l != &r.all.sentinel; l = l.next {
		n++
	}
	return n
}
