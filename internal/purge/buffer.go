package purge

import "sync"

// Buffer accumulates transcript text in process memory only. Wipe
// zeroizes the backing array before releasing it, so the plaintext does
// not linger in freed memory waiting for the collector.
type Buffer struct {
	mu   sync.Mutex
	data []byte
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a chunk of transcript text.
func (b *Buffer) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, chunk...)
}

// Len returns the buffered byte count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Bytes returns a copy of the buffered content.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Wipe zeroizes and releases the buffer. Safe to call repeatedly.
func (b *Buffer) Wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.data {
		b.data[i] = 0
	}
	b.data = nil
}
