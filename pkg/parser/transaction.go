package parser

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"btcompress/pkg/types"
	"btcompress/pkg/utils"
)

// segwitMarker and segwitFlag are the two bytes that appear between a
// transaction's version and its input count when the SegWit serialization
// is in use.
const (
	segwitMarker byte = 0x00
	segwitFlag   byte = 0x01
)

// ParseTransaction reads one transaction in canonical layout: version,
// optional marker+flag, inputs, outputs, witnesses (if flagged), lock
// time. Witnesses are attached to their owning input, never held at the
// transaction level, even though on the wire they follow the outputs.
//
// r must be a *bufio.Reader so the SegWit marker can be peeked without
// consuming it when it turns out to be the first byte of the input count
// varint instead.
func ParseTransaction(r *bufio.Reader) (*types.Transaction, error) {
	tx := &types.Transaction{}

	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return nil, errors.Wrap(err, "read transaction version")
	}

	flag, err := peekSegwitMarker(r)
	if err != nil {
		return nil, err
	}
	tx.Flag = flag

	inputCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input count")
	}
	tx.InputCount = inputCount

	tx.Inputs = make([]*types.Input, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		in, err := ParseInput(r)
		if err != nil {
			return nil, errors.Wrapf(err, "parse input %d", i)
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
		out, err := ParseOutput(r)
		if err != nil {
			return nil, errors.Wrapf(err, "parse output %d", i)
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
				w, err := parseWitness(r)
				if err != nil {
					return nil, errors.Wrapf(err, "parse witness %d of input %d", j, i)
				}
				in.Witnesses = append(in.Witnesses, w)
			}
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return nil, errors.Wrap(err, "read lock time")
	}

	return tx, nil
}

// peekSegwitMarker peeks a single byte, the way the original C++ parser
// used ifstream::peek(): if it is 0x00, the transaction carries the
// SegWit marker+flag and both bytes are consumed; otherwise nothing is
// consumed and the byte is left for the input-count varint to read.
func peekSegwitMarker(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(1)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errors.Wrap(err, "peek segwit marker")
	}

	if b[0] != segwitMarker {
		return false, nil
	}

	var markerAndFlag [2]byte
	if _, err := io.ReadFull(r, markerAndFlag[:]); err != nil {
		return false, errors.Wrap(err, "consume segwit marker+flag")
	}
	return true, nil
}

// ParseInput reads one input: reversed prev-tx hash, prev index, script,
// sequence number. Witnesses are filled in later by ParseTransaction if
// the transaction carries the SegWit flag.
func ParseInput(r io.Reader) (*types.Input, error) {
	in := &types.Input{}

	hash, err := utils.ReadHash(r)
	if err != nil {
		return nil, errors.Wrap(err, "read prev transaction hash")
	}
	in.PrevTransactionHash = hash

	if err := binary.Read(r, binary.LittleEndian, &in.PrevTransactionIndex); err != nil {
		return nil, errors.Wrap(err, "read prev transaction index")
	}

	scriptLen, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read script length")
	}
	in.ScriptLength = scriptLen

	in.Script = make([]byte, scriptLen)
	if _, err := io.ReadFull(r, in.Script); err != nil {
		return nil, errors.Wrap(err, "read script bytes")
	}

	if err := binary.Read(r, binary.LittleEndian, &in.SequenceNumber); err != nil {
		return nil, errors.Wrap(err, "read sequence number")
	}

	in.Witnesses = []*types.Witness{}

	return in, nil
}

// ParseOutput reads one output: value, script length, script bytes.
func ParseOutput(r io.Reader) (*types.Output, error) {
	out := &types.Output{}

	if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
		return nil, errors.Wrap(err, "read output value")
	}

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

func parseWitness(r io.Reader) (*types.Witness, error) {
	size, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, errors.Wrap(err, "read witness size")
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "read witness data")
	}

	return &types.Witness{Size: size, Data: data}, nil
}
