package intake

import "sync"

// growThreshold is the fill percentage at which the buffer doubles.
const growThreshold = 70

// Buffer is a thread-safe FIFO ring that doubles its capacity when it
// reaches 70% full, so Send never blocks.
type Buffer[T any] struct {
	mu     sync.Mutex
	buf    []T
	head   int
	count  int
	closed bool

	// ready has one slot and is signalled whenever items are added.
	ready chan struct{}

	received int64
	drained  int64
	grows    int
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer[T]{
		buf:   make([]T, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Send appends items. It returns false once the buffer is closed.
func (b *Buffer[T]) Send(items ...T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.pushLocked(items)
	b.mu.Unlock()

	b.signal(len(items))
	return true
}

// Requeue puts items back at the head, ahead of anything sent since they
// were drained, keeping their order. It works after Close, for work that was
// drained but could not be completed.
func (b *Buffer[T]) Requeue(items ...T) {
	b.mu.Lock()
	for i := len(items) - 1; i >= 0; i-- {
		if (b.count+1)*100 >= len(b.buf)*growThreshold {
			b.grow()
		}
		b.head = (b.head - 1 + len(b.buf)) % len(b.buf)
		b.buf[b.head] = items[i]
		b.count++
	}
	b.drained -= int64(len(items))
	b.mu.Unlock()

	b.signal(len(items))
}

func (b *Buffer[T]) pushLocked(items []T) {
	for _, it := range items {
		if (b.count+1)*100 >= len(b.buf)*growThreshold {
			b.grow()
		}
		b.buf[(b.head+b.count)%len(b.buf)] = it
		b.count++
		b.received++
	}
}

func (b *Buffer[T]) signal(n int) {
	if n == 0 {
		return
	}
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after items are added.
func (b *Buffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Drain removes and returns up to max items in FIFO order. max <= 0 drains
// everything.
func (b *Buffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	var zero T
	for i := range out {
		out[i] = b.buf[b.head]
		b.buf[b.head] = zero
		b.head = (b.head + 1) % len(b.buf)
	}
	b.count -= n
	b.drained += int64(n)
	return out
}

// Close stops further sends. Items already queued can still be drained.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the number of queued items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.count,
		Capacity: len(b.buf),
		Received: b.received,
		Drained:  b.drained,
		Grows:    b.grows,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count    int
	Capacity int
	Received int64
	Drained  int64
	Grows    int
}

// grow doubles the capacity, unwrapping the ring. Must hold mu.
func (b *Buffer[T]) grow() {
	next := make([]T, len(b.buf)*2)
	for i := 0; i < b.count; i++ {
		next[i] = b.buf[(b.head+i)%len(b.buf)]
	}
	b.buf = next
	b.head = 0
	b.grows++
}
