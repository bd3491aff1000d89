// Package types defines the in-memory entity model shared by the raw and
// compressed parsers: Block, Transaction, Input, Output and Witness. Each
// level exclusively owns its children; there are no cross-references.
package types

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Block is a batch of transactions chained to a previous block via its
// header. Hash, PrevBlock and MerkleRoot are kept in display (big-endian)
// order in memory; the on-disk/wire encoding of all three is little-endian
// and is handled entirely by the I/O layer (pkg/utils).
type Block struct {
	Size             uint32
	Version          uint32
	PrevBlock        chainhash.Hash
	MerkleRoot       chainhash.Hash
	Time             uint32
	Bits             uint32
	Nonce            uint32
	TransactionCount uint64
	Transactions     []*Transaction

	// Hash is not part of the wire encoding; it is recomputed on parse as
	// the double-SHA-256 of the 80-byte header.
	Hash chainhash.Hash
}

// Transaction is a single state transition: it spends Inputs and creates
// Outputs. Witnesses live inside each Input, never at the transaction
// level, even though the canonical wire layout places the witness stack
// between the outputs and the lock time.
type Transaction struct {
	Version     uint32
	Flag        bool // true iff the SegWit marker+flag (0x00 0x01) was present
	InputCount  uint64
	OutputCount uint64
	LockTime    uint32
	Inputs      []*Input
	Outputs     []*Output
}

// Input spends a single previous output.
type Input struct {
	PrevTransactionHash  chainhash.Hash
	PrevTransactionIndex uint32
	ScriptLength         uint64
	Script               []byte
	SequenceNumber       uint32
	WitnessCount         uint64
	Witnesses            []*Witness
}

// Output assigns value to a locking script.
type Output struct {
	Value        uint64
	ScriptLength uint64
	Script       []byte
}

// Witness is a single item on a SegWit input's witness stack.
type Witness struct {
	Size uint64
	Data []byte
}
