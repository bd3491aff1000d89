package compressed

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"btcompress/pkg/types"
	"btcompress/pkg/utils"
)

// WriteTransaction writes tx in compact form: a flags byte, then inputs,
// outputs, witnesses (if flagged), and lock time, each with the elisions
// spec section 4.5 describes. strict rejects any transaction whose
// version is not 1 or 2 with an Unsupported error instead of silently
// collapsing it into the VERSION_2 bit (spec section 4.5/9, version
// fidelity is a documented lossy default in the original implementation;
// this repository makes the loss opt-in via the caller's strict flag).
func WriteTransaction(w io.Writer, tx *types.Transaction, ctx *types.CompressionContext, strict bool) error {
	if strict && tx.Version != 1 && tx.Version != 2 {
		return types.NewCodecError(types.Unsupported, -1,
			fmt.Sprintf("transaction version %d cannot round-trip through the compact encoding (only 1 and 2 preserve their value)", tx.Version), nil)
	}

	lockTimeDefault := tx.LockTime == 0
	sequenceDefault := true
	for _, in := range tx.Inputs {
		if in.SequenceNumber != defaultSequenceNumber {
			sequenceDefault = false
			break
		}
	}

	var flags byte
	if tx.Version == 2 {
		flags |= flagVersion2
	}
	if tx.Flag {
		flags |= flagPresent
	}
	if lockTimeDefault {
		flags |= flagLockTimeDefault
	}
	if sequenceDefault {
		flags |= flagSequenceDefault
	}

	if _, err := w.Write([]byte{flags}); err != nil {
		return errors.Wrap(err, "write flags byte")
	}

	if err := utils.WriteVarInt(w, uint64(len(tx.Inputs))); err != nil {
		return errors.Wrap(err, "write input count")
	}
	for i, in := range tx.Inputs {
		if err := WriteInput(w, in, ctx, sequenceDefault); err != nil {
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
				if err := utils.WriteVarInt(w, uint64(len(wit.Data))); err != nil {
					return errors.Wrapf(err, "write witness %d size of input %d", j, i)
				}
				if _, err := w.Write(wit.Data); err != nil {
					return errors.Wrapf(err, "write witness %d data of input %d", j, i)
				}
			}
		}
	}

	if !lockTimeDefault {
		if err := binary.Write(w, binary.LittleEndian, tx.LockTime); err != nil {
			return errors.Wrap(err, "write lock time")
		}
	}

	return nil
}

// WriteInput writes one compact input: the dedup index for its
// prev-transaction hash, the prev index and script as varints/bytes, and
// the sequence number only when the transaction's inputs are not all
// SEQUENCE_NUMBERS_DEFAULT.
func WriteInput(w io.Writer, in *types.Input, ctx *types.CompressionContext, sequenceDefault bool) error {
	index := ctx.IndexFor(in.PrevTransactionHash)
	if err := binary.Write(w, binary.LittleEndian, index); err != nil {
		return errors.Wrap(err, "write dedup index")
	}
	if err := utils.WriteVarInt(w, uint64(in.PrevTransactionIndex)); err != nil {
		return errors.Wrap(err, "write prev transaction index")
	}
	if err := utils.WriteVarInt(w, uint64(len(in.Script))); err != nil {
		return errors.Wrap(err, "write script length")
	}
	if _, err := w.Write(in.Script); err != nil {
		return errors.Wrap(err, "write script bytes")
	}
	if !sequenceDefault {
		if err := utils.WriteVarInt(w, uint64(in.SequenceNumber^defaultSequenceNumber)); err != nil {
			return errors.Wrap(err, "write sequence delta")
		}
	}
	return nil
}

// WriteOutput writes one compact output: value and script as varints/bytes.
func WriteOutput(w io.Writer, out *types.Output) error {
	if err := utils.WriteVarInt(w, out.Value); err != nil {
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

// ReadTransaction reads one compact transaction, resolving dedup indices
// against ctx (already populated from the trailing hash table) and
// restoring the elided fields to their default values.
func ReadTransaction(r io.Reader, ctx *types.DecompressionContext) (*types.Transaction, error) {
	var flagsBuf [1]byte
	if _, err := io.ReadFull(r, flagsBuf[:]); err != nil {
		return nil, errors.Wrap(err, "read flags byte")
	}
	flags := flagsBuf[0]

	tx := &types.Transaction{}
	if flags&flagVersion2 != 0 {
		tx.Version = 2
	} else {
		tx.Version = 1
	}
	tx.Flag = flags&flagPresent != 0
	lockTimeDefault := flags&flagLockTimeDefault != 0
	sequenceDefault := flags&flagSequenceDefault != 0

	inputCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input count")
	}
	tx.InputCount = inputCount

	tx.Inputs = make([]*types.Input, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		in, err := ReadInput(r, ctx, sequenceDefault)
		if err != nil {
			return nil, errors.Wrapf(err, "read input %d", i)
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	outputCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read output count")
	}
	tx.OutputCount = outputCount

	tx.Outputs = make([]*types.Output, 0, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		out, err := ReadOutput(r)
		if err != nil {
			return nil, errors.Wrapf(err, "read output %d", i)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	if tx.Flag {
		for i, in := range tx.Inputs {
			witnessCount, err := utils.ReadVarInt(r)
			if err != nil {
				return nil, errors.Wrapf(err, "read witness count for input %d", i)
			}
			in.WitnessCount = witnessCount
			in.Witnesses = make([]*types.Witness, 0, witnessCount)
			for j := uint64(0); j < witnessCount; j++ {
				size, err := utils.ReadVarInt(r)
				if err != nil {
					return nil, errors.Wrapf(err, "read witness %d size of input %d", j, i)
				}
				data := make([]byte, size)
				if _, err := io.ReadFull(r, data); err != nil {
					return nil, errors.Wrapf(err, "read witness %d data of input %d", j, i)
				}
				in.Witnesses = append(in.Witnesses, &types.Witness{Size: size, Data: data})
			}
		}
	}

	if lockTimeDefault {
		tx.LockTime = 0
	} else if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return nil, errors.Wrap(err, "read lock time")
	}

	return tx, nil
}

// ReadInput reads one compact input, resolving its dedup index to a full
// hash via ctx and restoring the sequence number if it was elided.
func ReadInput(r io.Reader, ctx *types.DecompressionContext, sequenceDefault bool) (*types.Input, error) {
	in := &types.Input{}

	var index uint32
	if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
		return nil, errors.Wrap(err, "read dedup index")
	}
	hash, err := ctx.HashAt(index)
	if err != nil {
		return nil, err
	}
	in.PrevTransactionHash = hash

	prevIndex, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read prev transaction index")
	}
	in.PrevTransactionIndex = uint32(prevIndex)

	scriptLen, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read script length")
	}
	in.ScriptLength = scriptLen
	in.Script = make([]byte, scriptLen)
	if _, err := io.ReadFull(r, in.Script); err != nil {
		return nil, errors.Wrap(err, "read script bytes")
	}

	if sequenceDefault {
		in.SequenceNumber = defaultSequenceNumber
	} else {
		delta, err := utils.ReadVarInt(r)
		if err != nil {
			return nil, errors.Wrap(err, "read sequence delta")
		}
		in.SequenceNumber = uint32(delta) ^ defaultSequenceNumber
	}

	in.Witnesses = []*types.Witness{}

	return in, nil
}

// ReadOutput reads one compact output.
func ReadOutput(r io.Reader) (*types.Output, error) {
	out := &types.Output{}

	value, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read output value")
	}
	out.Value = value

	scriptLen, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read script length")
	}
	out.ScriptLength = scriptLen
	out.Script = make([]byte, scriptLen)
	if _, err := io.ReadFull(r, out.Script); err != nil {
		return nil, errors.Wrap(err, "read script bytes")
	}

	return out, nil
}
