package emu

// Memory is a sparse word-addressed data memory. Unset addresses read as
// zero; addresses are unconstrained (no alignment or bounds enforcement).
type Memory struct {
	words map[int64]int64
}

// NewMemory creates an empty data memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[int64]int64)}
}

// Read returns the word at the given address, or 0 if it was never written.
func (m *Memory) Read(addr int64) int64 {
	return m.words[addr]
}

// Write stores a word at the given address.
func (m *Memory) Write(addr, value int64) {
	m.words[addr] = value
}

// Snapshot returns a copy of all written addresses and their values.
func (m *Memory) Snapshot() map[int64]int64 {
	out := make(map[int64]int64, len(m.words))
	for addr, v := range m.words {
		out[addr] = v
	}
	return out
}

// Len returns the number of written addresses.
func (m *Memory) Len() int {
	return len(m.words)
}

// Reset discards all memory contents.
func (m *Memory) Reset() {
	m.words = make(map[int64]int64)
}
