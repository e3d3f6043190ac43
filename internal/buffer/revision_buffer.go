package buffer

import (
	"sort"
	"sync"

	v1 "mergeflow/pkg/api/v1"
)

// RevisionBuffer is a fixed-size ring of publish events ordered by etcd
// revision. Reconnecting stream clients replay from it instead of taking a
// full snapshot, as long as their last seen revision is still inside the
// window.
type RevisionBuffer struct {
	mu       sync.RWMutex
	messages []v1.Message
	size     int
	head     int
	isFull   bool
}

func NewRevisionBuffer(size int) *RevisionBuffer {
	if size <= 0 {
		size = 1000
	}
	return &RevisionBuffer{
		messages: make([]v1.Message, size),
		size:     size,
	}
}

func (b *RevisionBuffer) AddMessage(msg v1.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages[b.head] = msg
	b.head = (b.head + 1) % b.size
	if b.head == 0 {
		b.isFull = true
	}
}

// GetSince returns all buffered messages with revision > lastRev. The
// second return is false when lastRev has already fallen out of the window
// and the caller must take a full snapshot instead.
func (b *RevisionBuffer) GetSince(lastRev int64) ([]v1.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.head
	start := 0
	if b.isFull {
		count = b.size
		start = b.head
	}

	if count == 0 {
		return nil, true
	}

	oldestRev := b.messages[start].Revision
	if lastRev < oldestRev {
		return nil, false
	}

	// logical index i maps to physical index (start + i) % size
	idx := sort.Search(count, func(i int) bool {
		physIdx := (start + i) % b.size
		return b.messages[physIdx].Revision > lastRev
	})

	if idx == count {
		return nil, true
	}

	result := make([]v1.Message, 0, count-idx)
	for i := idx; i < count; i++ {
		physIdx := (start + i) % b.size
		result = append(result, b.messages[physIdx])
	}

	return result, true
}
