// Package decompressor implements the inverse of pkg/compressor: read the
// header-index permutation, scan compressed blocks to assign byte
// offsets, load the trailing hash table, then emit canonical bytes in
// original order (spec section 4.7).
package decompressor

import (
	"context"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"btcompress/pkg/compressed"
	"btcompress/pkg/logging"
	"btcompress/pkg/parser"
	"btcompress/pkg/types"
)

type blockRecord struct {
	OriginalIndex uint32
	Offset        int64
}

// Decompress reads the compressed container in input and writes the
// canonical byte stream to output, in the blocks' original order.
func Decompress(ctx context.Context, input io.ReadSeeker, output io.WriteSeeker) error {
	log := logging.L()

	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek input to start")
	}

	var count uint32
	if err := binary.Read(input, binary.LittleEndian, &count); err != nil {
		return errors.Wrap(err, "read block count")
	}

	originalIndices := make([]uint32, count)
	for i := range originalIndices {
		if err := binary.Read(input, binary.LittleEndian, &originalIndices[i]); err != nil {
			return errors.Wrapf(err, "read header index entry %d", i)
		}
	}

	records := make([]blockRecord, count)
	for i := uint32(0); i < count; i++ {
		offset, err := input.Seek(0, io.SeekCurrent)
		if err != nil {
			return errors.Wrap(err, "tell at block start")
		}

		var magic uint32
		if err := binary.Read(input, binary.LittleEndian, &magic); err != nil {
			return errors.Wrapf(err, "read magic for compressed block %d", i)
		}
		if magic != parser.MagicNumber {
			if magic == parser.MagicNumberReverse {
				return types.NewCodecError(types.BadMagic, offset,
					"magic number is byte-swapped — this looks like an endianness mismatch, not a corrupt file", nil)
			}
			return types.NewCodecError(types.BadMagic, offset, "stream is not positioned at a compressed block", nil)
		}

		var size uint32
		if err := binary.Read(input, binary.LittleEndian, &size); err != nil {
			return errors.Wrapf(err, "read size for compressed block %d", i)
		}
		if _, err := input.Seek(int64(size), io.SeekCurrent); err != nil {
			return errors.Wrapf(err, "skip to end of compressed block %d", i)
		}

		records[i] = blockRecord{OriginalIndex: originalIndices[i], Offset: offset}
	}

	dctx, err := compressed.ReadHashTable(input)
	if err != nil {
		return errors.Wrap(err, "load dedup hash table")
	}
	log.WithField("hashes", dctx.Len()).Info("loaded dedup hash table")

	sort.SliceStable(records, func(i, j int) bool { return records[i].OriginalIndex < records[j].OriginalIndex })

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := input.Seek(rec.Offset, io.SeekStart); err != nil {
			return errors.Wrapf(err, "seek to compressed block %d", i)
		}
		block, err := compressed.ReadBlock(input, dctx)
		if err != nil {
			return errors.Wrapf(err, "read compressed block %d", i)
		}
		if err := parser.WriteBlock(output, block); err != nil {
			return errors.Wrapf(err, "write canonical block %d", i)
		}

		log.WithFields(logrus.Fields{
			"block":          i,
			"original_index": rec.OriginalIndex,
			"transactions":   len(block.Transactions),
		}).Debug("decompressed block")
	}

	log.WithField("blocks", count).Info("decompression complete")
	return nil
}
