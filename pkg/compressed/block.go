package compressed

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"btcompress/pkg/parser"
	"btcompress/pkg/types"
	"btcompress/pkg/utils"
)

// WriteBlock writes block in compact form: magic, a backpatched size
// slot, the canonical 80-byte header, varint transaction count, then each
// compact transaction (spec section 4.5).
func WriteBlock(w io.WriteSeeker, block *types.Block, ctx *types.CompressionContext, strict bool) error {
	if err := binary.Write(w, binary.LittleEndian, parser.MagicNumber); err != nil {
		return errors.Wrap(err, "write block magic")
	}

	slotPos, err := utils.ReserveSizeSlot(w)
	if err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, block.Version); err != nil {
		return errors.Wrap(err, "write block version")
	}
	if err := utils.WriteHash(w, block.PrevBlock); err != nil {
		return errors.Wrap(err, "write hashPrevBlock")
	}
	if err := utils.WriteHash(w, block.MerkleRoot); err != nil {
		return errors.Wrap(err, "write hashMerkleRoot")
	}
	if err := binary.Write(w, binary.LittleEndian, block.Time); err != nil {
		return errors.Wrap(err, "write block time")
	}
	if err := binary.Write(w, binary.LittleEndian, block.Bits); err != nil {
		return errors.Wrap(err, "write block bits")
	}
	if err := binary.Write(w, binary.LittleEndian, block.Nonce); err != nil {
		return errors.Wrap(err, "write block nonce")
	}

	if err := utils.WriteVarInt(w, uint64(len(block.Transactions))); err != nil {
		return errors.Wrap(err, "write transaction count")
	}
	for i, tx := range block.Transactions {
		if err := WriteTransaction(w, tx, ctx, strict); err != nil {
			return errors.Wrapf(err, "write transaction %d", i)
		}
	}

	return utils.BackpatchSize(w, slotPos)
}

// ReadBlock reads one compact block: magic, size, the canonical header,
// transaction count, then each compact transaction, resolving dedup
// indices against ctx. ctx must already be populated from the trailing
// hash table (spec section 9, Design Notes strategy (a)) — the
// decompressor's preprocess pass guarantees this before any block body is
// parsed.
func ReadBlock(r io.Reader, ctx *types.DecompressionContext) (*types.Block, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "read block magic")
	}
	if magic != parser.MagicNumber {
		return nil, types.NewCodecError(types.BadMagic, -1, "compressed block did not begin with the expected magic number", nil)
	}

	block := &types.Block{}
	if err := binary.Read(r, binary.LittleEndian, &block.Size); err != nil {
		return nil, errors.Wrap(err, "read block size")
	}

	header, err := parser.ReadHeader(r, block)
	if err != nil {
		return nil, err
	}
	block.Hash = utils.BlockHeaderHash(header)

	txCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read transaction count")
	}
	block.TransactionCount = txCount

	block.Transactions = make([]*types.Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := ReadTransaction(r, ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "read transaction %d", i)
		}
		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

// WriteHashTable flushes ctx's dedup table: n_hashes (u32), then each
// hash in index order, reversed to on-wire byte order (spec section 4.4).
func WriteHashTable(w io.Writer, ctx *types.CompressionContext) error {
	hashes := ctx.Hashes()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(hashes))); err != nil {
		return errors.Wrap(err, "write hash table count")
	}
	for i, h := range hashes {
		if err := utils.WriteHash(w, h); err != nil {
			return errors.Wrapf(err, "write hash table entry %d", i)
		}
	}
	return nil
}

// ReadHashTable loads the trailing hash table into a fresh
// DecompressionContext, ready to resolve dedup indices.
func ReadHashTable(r io.Reader) (*types.DecompressionContext, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read hash table count")
	}

	hashes := make([]chainhash.Hash, count)
	for i := uint32(0); i < count; i++ {
		h, err := utils.ReadHash(r)
		if err != nil {
			return nil, errors.Wrapf(err, "read hash table entry %d", i)
		}
		hashes[i] = h
	}

	return types.NewDecompressionContext(hashes), nil
}
