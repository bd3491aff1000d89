// Package compressed implements the custom compact container format: the
// block-local flags byte, varint re-encoding, sequence-number/lock-time
// default elision, and the deduplicated previous-transaction-hash table
// (spec section 4.5/4.6). It shares the entity model and header layout
// with pkg/parser rather than duplicating them.
package compressed

// Flags byte bits, spec section 4.5.
const (
	flagVersion2         byte = 0x01
	flagPresent          byte = 0x02
	flagLockTimeDefault  byte = 0x04
	flagSequenceDefault  byte = 0x08
)

const defaultSequenceNumber uint32 = 0xffffffff
