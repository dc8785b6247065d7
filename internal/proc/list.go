package proc

// Link is a self-referential intrusive list node, per spec.md §9's
// design note (b): "a self-referential node type whose head is a
// sentinel owned by the scheduler; membership operations then become
// safe methods on the node." A Descriptor embeds one as StatusLink so
// the scheduler package can move it between ready queues (or the wait
// queue) without a separate container allocation, plus a second,
// unexported one (globalLink) this package uses for the registry.
// Exported so component C's queues — which this package's design
// notes place outside proc's ownership — can still splice a
// Descriptor in and out by its StatusLink field.
type Link struct {
	next, prev *Link
	owner      *Descriptor
}

// Owner returns the descriptor this link is embedded in.
func (l *Link) Owner() *Descriptor { return l.owner }

// SelfLoop points a link at itself, the not-enqueued state spec.md §3
// invariant 1 calls "self-looped".
func (l *Link) SelfLoop() {
	l.next = l
	l.prev = l
}

// IsSelfLooped reports whether l is not a member of any list.
func (l *Link) IsSelfLooped() bool {
	return l.next == l && l.prev == l
}

// Unlink removes l from whatever list currently holds it, leaving it
// self-looped. Safe to call on an already self-looped link.
func (l *Link) Unlink() {
	l.prev.next = l.next
	l.next.prev = l.prev
	l.SelfLoop()
}

// InsertBefore splices l in immediately before at (so appending
// before a sentinel head inserts at the tail of the list).
func (l *Link) InsertBefore(at *Link) {
	l.next = at
	l.prev = at.prev
	at.prev.next = l
	at.prev = l
}

// Queue is a sentinel-headed circular list of Links, per spec.md §3
// ("Doubly-linked, intrusive, circular lists with a sentinel head").
// The zero value is not ready for use; call NewQueue.
type Queue struct {
	sentinel Link
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.sentinel.SelfLoop()
	return q
}

// Empty reports whether q has no members.
func (q *Queue) Empty() bool {
	return q.sentinel.next == &q.sentinel
}

// PushTail enqueues d at the tail via its link ln, the insertion end
// spec.md §5 names for FIFO, round-robin ready queues. ln must belong
// to d (normally &d.StatusLink).
func (q *Queue) PushTail(d *Descriptor, ln *Link) {
	ln.owner = d
	ln.InsertBefore(&q.sentinel)
}

// Head returns the descriptor owning the queue's head link, or nil if
// empty. It does not remove the link; callers that want removal call
// Unlink on the returned descriptor's own link field.
func (q *Queue) Head() *Descriptor {
	if q.Empty() {
		return nil
	}
	return q.sentinel.next.owner
}

// list and link are the unexported aliases the registry uses for its
// own, single-package bookkeeping of globalLink membership.
type list = Queue
type link = Link

func newList() *list { return NewQueue() }
