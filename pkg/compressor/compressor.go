// Package compressor implements the two-pass compression driver: scan
// block offsets and times, sort by time, then for each block in that
// order parse-and-recompress it, finally flushing the dedup hash table
// (spec section 4.4).
package compressor

import (
	"bufio"
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

// CompressOptions carries the behavioral choices the driver needs beyond
// the pure codec, per spec section 9's version-fidelity open question.
type CompressOptions struct {
	// Lossy restores the original implementation's behavior of silently
	// truncating any transaction version to the VERSION_2 bit instead of
	// aborting compression with an Unsupported error (spec section 4.5).
	Lossy bool
}

type blockRecord struct {
	Time          uint32
	OriginalIndex int
	Offset        int64
}

// Compress reads the blocks in input, reorders them by time, writes the
// compressed container to output, and flushes the trailing dedup hash
// table. ctx is checked for cancellation only at block boundaries,
// honoring spec section 5's "no suspension points" model.
func Compress(ctx context.Context, input io.ReadSeeker, output io.WriteSeeker, opts CompressOptions) error {
	log := logging.L()

	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek input to start")
	}

	records, err := preprocess(input)
	if err != nil {
		return err
	}
	log.WithField("blocks", len(records)).Info("preprocessed block file")

	sort.SliceStable(records, func(i, j int) bool { return records[i].Time < records[j].Time })

	if err := binary.Write(output, binary.LittleEndian, uint32(len(records))); err != nil {
		return errors.Wrap(err, "write block count")
	}
	for _, rec := range records {
		if err := binary.Write(output, binary.LittleEndian, uint32(rec.OriginalIndex)); err != nil {
			return errors.Wrap(err, "write header index entry")
		}
	}

	cctx := types.NewCompressionContext()
	strict := !opts.Lossy

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := input.Seek(rec.Offset, io.SeekStart); err != nil {
			return errors.Wrapf(err, "seek to block %d", i)
		}
		// A fresh bufio.Reader per block is correct here, unlike in a
		// sequential dump: the seek above always repositions to a known
		// block boundary, so any lookahead buffered past this block's end
		// is harmless to discard once ParseBlock returns.
		block, err := parser.ParseBlock(bufio.NewReader(input))
		if err != nil {
			return errors.Wrapf(err, "parse block %d", i)
		}
		if err := compressed.WriteBlock(output, block, cctx, strict); err != nil {
			return errors.Wrapf(err, "write compressed block %d", i)
		}

		log.WithFields(logrus.Fields{
			"block":          i,
			"original_index": rec.OriginalIndex,
			"time":           rec.Time,
			"transactions":   len(block.Transactions),
		}).Debug("compressed block")
	}

	if err := compressed.WriteHashTable(output, cctx); err != nil {
		return errors.Wrap(err, "flush dedup hash table")
	}
	log.WithField("hashes", cctx.Len()).Info("flushed dedup hash table")

	return nil
}

// preprocess scans the block region starting at the stream's current
// position, recording (time, original index, byte offset) per block
// without fully parsing any of them (spec section 4.4, pass 1).
func preprocess(r io.ReadSeeker) ([]blockRecord, error) {
	var records []blockRecord

	for i := 0; ; i++ {
		offset, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, errors.Wrap(err, "tell at block start")
		}

		var magic uint32
		if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "read magic for block %d", i)
		}
		if magic != parser.MagicNumber {
			if magic == parser.MagicNumberReverse {
				return nil, types.NewCodecError(types.BadMagic, offset,
					"magic number is byte-swapped — this looks like an endianness mismatch, not a corrupt file", nil)
			}
			return nil, types.NewCodecError(types.BadMagic, offset, "stream is not positioned at a block", nil)
		}

		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, errors.Wrapf(err, "read size for block %d", i)
		}

		// version(4) + prevHash(32) + merkleRoot(32) = 68 bytes to skip
		// before the time field.
		if _, err := r.Seek(68, io.SeekCurrent); err != nil {
			return nil, errors.Wrapf(err, "skip to time field for block %d", i)
		}
		var blockTime uint32
		if err := binary.Read(r, binary.LittleEndian, &blockTime); err != nil {
			return nil, errors.Wrapf(err, "read time for block %d", i)
		}

		records = append(records, blockRecord{Time: blockTime, OriginalIndex: i, Offset: offset})

		// size covers everything after the size field; 72 bytes of that
		// (version+prevHash+merkleRoot+time) have already been read here.
		remaining := int64(size) - 72
		if remaining < 0 {
			return nil, types.NewCodecError(types.ShortRead, offset, "block size field is smaller than the header fields already read", nil)
		}
		if _, err := r.Seek(remaining, io.SeekCurrent); err != nil {
			return nil, errors.Wrapf(err, "skip to end of block %d", i)
		}
	}

	return records, nil
}
