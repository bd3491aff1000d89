package parser

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"btcompress/pkg/types"
	"btcompress/pkg/utils"
)

// WriteBlock writes block in canonical layout: magic, a backpatched size
// slot, the 80-byte header, varint transaction count, then each
// transaction. It is the exact inverse of ParseBlock, used by the
// decompressor (spec section 4.7's "emit the canonical-layout bytes") and
// by round-trip tests.
func WriteBlock(w io.WriteSeeker, block *types.Block) error {
	if err := binary.Write(w, binary.LittleEndian, MagicNumber); err != nil {
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
		if err := WriteTransaction(w, tx); err != nil {
			return errors.Wrapf(err, "write transaction %d", i)
		}
	}

	return utils.BackpatchSize(w, slotPos)
}

// WriteTransaction writes tx in canonical layout: version, optional
// marker+flag, inputs, outputs, witnesses (if flagged), lock time.
func WriteTransaction(w io.Writer, tx *types.Transaction) error {
	if err := binary.Write(w, binary.LittleEndian, tx.Version); err != nil {
		return errors.Wrap(err, "write transaction version")
	}

	if tx.Flag {
		if _, err := w.Write([]byte{segwitMarker, segwitFlag}); err != nil {
			return errors.Wrap(err, "write segwit marker+flag")
		}
	}

	if err := utils.WriteVarInt(w, uint64(len(tx.Inputs))); err != nil {
		return errors.Wrap(err, "write input count")
	}
	for i, in := range tx.Inputs {
		if err := WriteInput(w, in); err != nil {
			return errors.Wrapf(err, "write input %d", i)
		}
	}

	if err := utils.WriteVarInt(w, uint64(len(tx.Outputs))); err != nil {
		return errors.Wrap(err, "write output count")
	}
	for i, out := range tx.Outputs {
		if err := WriteOutput(w, out); err != nil {
			return errors.Wrapf(err, "write output %d", i)
		}
	}

	if tx.Flag {
		for i, in := range tx.Inputs {
			if err := utils.WriteVarInt(w, uint64(len(in.Witnesses))); err != nil {
				return errors.Wrapf(err, "write witness count for input %d", i)
			}
			for j, wit := range in.Witnesses {
				if err := writeWitness(w, wit); err != nil {
					return errors.Wrapf(err, "write witness %d of input %d", j, i)
				}
			}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, tx.LockTime); err != nil {
		return errors.Wrap(err, "write lock time")
	}

	return nil
}

// WriteInput writes one input: reversed prev-tx hash, prev index, script,
// sequence number. Witnesses are written separately by WriteTransaction.
func WriteInput(w io.Writer, in *types.Input) error {
	if err := utils.WriteHash(w, in.PrevTransactionHash); err != nil {
		return errors.Wrap(err, "write prev transaction hash")
	}
	if err := binary.Write(w, binary.LittleEndian, in.PrevTransactionIndex); err != nil {
		return errors.Wrap(err, "write prev transaction index")
	}
	if err := utils.WriteVarInt(w, uint64(len(in.Script))); err != nil {
		return errors.Wrap(err, "write script length")
	}
	if _, err := w.Write(in.Script); err != nil {
		return errors.Wrap(err, "write script bytes")
	}
	if err := binary.Write(w, binary.LittleEndian, in.SequenceNumber); err != nil {
		return errors.Wrap(err, "write sequence number")
	}
	return nil
}

// WriteOutput writes one output: value, script length, script bytes.
func WriteOutput(w io.Writer, out *types.Output) error {
	if err := binary.Write(w, binary.LittleEndian, out.Value); err != nil {
		return errors.Wrap(err, "write output value")
	}
	if err := utils.WriteVarInt(w, uint64(len(out.Script))); err != nil {
		return errors.Wrap(err, "write script length")
	}
	if _, err := w.Write(out.Script); err != nil {
		return errors.Wrap(err, "write script bytes")
	}
	return nil
}

func writeWitness(w io.Writer, wit *types.Witness) error {
	if err := utils.WriteVarInt(w, uint64(len(wit.Data))); err != nil {
		return errors.Wrap(err, "write witness size")
	}
	if _, err := w.Write(wit.Data); err != nil {
		return errors.Wrap(err, "write witness data")
	}
	return nil
}
