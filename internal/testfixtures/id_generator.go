package testfixtures

import (
	"strconv"
	"sync"
)

// IDGenerator yields "<prefix>-1", "<prefix>-2", ... so tests can assert on
// exact identifiers instead of matching UUIDs.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

// NewIDGenerator constructs a generator for the given prefix; an empty prefix
// becomes "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.prefix + "-" + strconv.FormatUint(g.next, 10)
}

// NextFunc adapts the generator to the injection signature services expect.
// A nil generator yields empty identifiers.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// SetPrefix swaps the prefix without resetting the sequence.
func (g *IDGenerator) SetPrefix(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prefix = prefix
}

// SetCounter rewinds or fast-forwards the sequence; the next identifier uses
// counter+1.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = counter
}
