package buffer

import (
	"sync"

	"go.uber.org/zap"
)

// RingBuffer is a thread-safe generic circular buffer.
// Once full, every Add overwrites the oldest entry.
type RingBuffer[T any] struct {
	mu       sync.RWMutex
	data     []T
	capacity int
	size     int
	head     int
	logger   *zap.Logger
}

// New creates a new generic RingBuffer with the specified capacity
func New[T any](capacity int, logger *zap.Logger) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Add inserts a new item into the buffer
// If the buffer is full, it overwrites the oldest entry
func (rb *RingBuffer[T]) Add(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == rb.capacity {
		rb.logger.Debug("ring buffer full, dropping oldest entry",
			zap.Int("capacity", rb.capacity))
	}

	rb.data[rb.head] = item
	rb.head = (rb.head + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// Newest returns a copy of the buffered items ordered newest first.
func (rb *RingBuffer[T]) Newest() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return nil
	}

	results := make([]T, rb.size)
	// head-1 is the most recent write
	for i := 0; i < rb.size; i++ {
		idx := (rb.head - 1 - i + rb.capacity) % rb.capacity
		results[i] = rb.data[idx]
	}
	return results
}

// Size returns the current number of entries in the buffer
func (rb *RingBuffer[T]) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum capacity of the buffer
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}
