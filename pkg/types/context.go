package types

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// CompressionContext owns the dedup hash->index table built over one
// compress invocation: a mapping from previous-transaction hash to a
// monotonically assigned index, plus the insertion order needed to flush
// the trailing hash table index-sorted (spec section 9, "Global dedup
// state" — threaded explicitly rather than held in a package global).
type CompressionContext struct {
	indices map[chainhash.Hash]uint32
	order   []chainhash.Hash
}

// NewCompressionContext returns an empty context ready for one compress
// invocation.
func NewCompressionContext() *CompressionContext {
	return &CompressionContext{indices: make(map[chainhash.Hash]uint32)}
}

// IndexFor returns the dedup index assigned to h, inserting it with the
// next sequential index the first time it is seen.
func (c *CompressionContext) IndexFor(h chainhash.Hash) uint32 {
	if idx, ok := c.indices[h]; ok {
		return idx
	}
	idx := uint32(len(c.order))
	c.indices[h] = idx
	c.order = append(c.order, h)
	return idx
}

// Hashes returns every hash seen so far, ordered by its assigned index —
// exactly the order the trailing hash table must be flushed in.
func (c *CompressionContext) Hashes() []chainhash.Hash {
	return c.order
}

// Len reports how many distinct hashes have been assigned an index.
func (c *CompressionContext) Len() int {
	return len(c.order)
}

// DecompressionContext owns the index->hash table loaded from the
// trailing hash table before any compressed transaction body is parsed
// (spec section 9, Design Notes strategy (a)).
type DecompressionContext struct {
	hashes []chainhash.Hash
}

// NewDecompressionContext wraps hashes, already in index order, as a
// DecompressionContext.
func NewDecompressionContext(hashes []chainhash.Hash) *DecompressionContext {
	return &DecompressionContext{hashes: hashes}
}

// HashAt resolves a dedup index read from a compressed input back to its
// full previous-transaction hash.
func (d *DecompressionContext) HashAt(index uint32) (chainhash.Hash, error) {
	if int(index) >= len(d.hashes) {
		return chainhash.Hash{}, NewCodecError(OutOfRange, -1,
			fmt.Sprintf("dedup index %d out of range (hash table has %d entries)", index, len(d.hashes)), nil)
	}
	return d.hashes[index], nil
}

// Len reports the size of the loaded hash table.
func (d *DecompressionContext) Len() int {
	return len(d.hashes)
}
