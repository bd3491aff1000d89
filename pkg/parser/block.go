// Package parser implements the canonical ("raw") block format: the exact
// on-disk byte layout described in spec section 6, as read out of a
// blk*.dat-style file and as written back out by the decompressor.
//
// Grounded on _examples/original_source/parse.h (parseBlock/parseInput/
// parseOutput/parseTransaction) and the teacher's pkg/parser/block.go
// header-then-hash-then-transactions structure.
package parser

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"btcompress/pkg/types"
	"btcompress/pkg/utils"
)

// MagicNumber is the four bytes preceding every block, interpreted as a
// little-endian uint32.
const MagicNumber uint32 = 0xd9b4bef9

// MagicNumberReverse is what a caller sees if it reads a big-endian stream
// at the same offset — the telltale sign of an endianness mismatch rather
// than a genuinely corrupt file.
const MagicNumberReverse uint32 = 0xf9beb4d9

// HeaderSize is the fixed 80-byte block header: version, prev hash, merkle
// root, time, bits, nonce. Shared by the canonical and compressed formats.
const HeaderSize = 80

// ParseBlock reads one block in canonical layout from r: magic, size,
// 80-byte header, varint transaction count, then that many transactions.
// The block hash is recomputed from the header, never trusted from disk.
//
// r must be the single *bufio.Reader the caller uses for the entire
// stream, not a fresh one per call: ParseTransaction peeks a byte through
// it to detect the SegWit marker, and bufio's read-ahead routinely pulls
// bytes past the current block's end into its internal buffer. A
// bufio.Reader created fresh for one ParseBlock call discards that
// buffered lookahead the moment the call returns, silently dropping
// however many bytes of the next block it had already consumed from the
// underlying stream — every block after the first would be lost or
// misparsed on a multi-block file. Passing in the same *bufio.Reader for
// every call keeps that lookahead available to the next call instead.
func ParseBlock(r *bufio.Reader) (*types.Block, error) {
	cr := utils.NewCountingReader(r)

	var magic uint32
	if err := binary.Read(cr, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "read block magic")
	}
	if err := checkMagic(magic, cr.Offset()-4); err != nil {
		return nil, err
	}

	block := &types.Block{}
	if err := binary.Read(cr, binary.LittleEndian, &block.Size); err != nil {
		return nil, errors.Wrap(err, "read block size")
	}

	header, err := ReadHeader(cr, block)
	if err != nil {
		return nil, err
	}
	block.Hash = utils.BlockHeaderHash(header)

	txCount, err := utils.ReadVarInt(cr)
	if err != nil {
		return nil, errors.Wrap(err, "read transaction count")
	}
	block.TransactionCount = txCount

	block.Transactions = make([]*types.Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := ParseTransaction(r)
		if err != nil {
			return nil, errors.Wrapf(err, "parse transaction %d", i)
		}
		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

func checkMagic(magic uint32, offset int64) error {
	if magic == MagicNumber {
		return nil
	}
	if magic == MagicNumberReverse {
		return types.NewCodecError(types.BadMagic, offset,
			"magic number is byte-swapped — this looks like an endianness mismatch, not a corrupt file", nil)
	}
	return types.NewCodecError(types.BadMagic, offset, "stream is not positioned at a block", nil)
}

// ReadHeader reads the 80-byte block header (version, prev hash, merkle
// root, time, bits, nonce) from r into block, and returns the same 80
// bytes in wire order, ready for utils.BlockHeaderHash. Shared by the
// canonical parser here and the compressed parser in pkg/compressed, since
// both formats use an identical header layout (spec section 6).
func ReadHeader(r io.Reader, block *types.Block) ([]byte, error) {
	header := make([]byte, HeaderSize)

	if err := binary.Read(r, binary.LittleEndian, &block.Version); err != nil {
		return nil, errors.Wrap(err, "read block version")
	}
	prevBlock, err := utils.ReadHash(r)
	if err != nil {
		return nil, errors.Wrap(err, "read hashPrevBlock")
	}
	block.PrevBlock = prevBlock

	merkleRoot, err := utils.ReadHash(r)
	if err != nil {
		return nil, errors.Wrap(err, "read hashMerkleRoot")
	}
	block.MerkleRoot = merkleRoot

	if err := binary.Read(r, binary.LittleEndian, &block.Time); err != nil {
		return nil, errors.Wrap(err, "read block time")
	}
	if err := binary.Read(r, binary.LittleEndian, &block.Bits); err != nil {
		return nil, errors.Wrap(err, "read block bits")
	}
	if err := binary.Read(r, binary.LittleEndian, &block.Nonce); err != nil {
		return nil, errors.Wrap(err, "read block nonce")
	}

	binary.LittleEndian.PutUint32(header[0:4], block.Version)
	writeReversed(header[4:36], prevBlock)
	writeReversed(header[36:68], merkleRoot)
	binary.LittleEndian.PutUint32(header[68:72], block.Time)
	binary.LittleEndian.PutUint32(header[72:76], block.Bits)
	binary.LittleEndian.PutUint32(header[76:80], block.Nonce)

	return header, nil
}

func writeReversed(dst []byte, h [32]byte) {
	for i := 0; i < 32; i++ {
		dst[i] = h[31-i]
	}
}
