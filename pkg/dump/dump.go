// Package dump renders a parsed Block the way the original C++
// implementation's printBlockHeader/printTransaction/printInput/
// printOutput did (see _examples/original_source/block.h, transaction.h,
// input.h, output.h), plus the script classification, disassembly, and
// address derivation the teacher's pkg/analyzer already implements. This
// is read-only tooling for a human inspecting a file — it is explicitly
// not part of the round-trip core.
package dump

import (
	"encoding/hex"

	"btcompress/pkg/analyzer"
	"btcompress/pkg/types"
)

// Block is the JSON-serializable diagnostic rendering of a types.Block,
// used by both `btcompress -p` and the POST /api/dump HTTP endpoint.
type Block struct {
	Size             uint32            `json:"size"`
	Version          uint32            `json:"version"`
	PrevBlock        string            `json:"prev_block"`
	MerkleRoot       string            `json:"merkle_root"`
	Time             uint32            `json:"time"`
	Bits             uint32            `json:"bits"`
	Nonce            uint32            `json:"nonce"`
	Hash             string            `json:"hash"`
	TransactionCount uint64            `json:"transaction_count"`
	Transactions     []Transaction     `json:"transactions"`
}

type Transaction struct {
	Version      uint32   `json:"version"`
	Flag         bool     `json:"flag"`
	InputCount   uint64   `json:"input_count"`
	OutputCount  uint64   `json:"output_count"`
	LockTime     uint32   `json:"lock_time"`
	LockTimeType string   `json:"lock_time_type"`
	RBFSignaling bool     `json:"rbf_signaling"`
	Inputs       []Input  `json:"inputs"`
	Outputs      []Output `json:"outputs"`
}

type Input struct {
	PrevTransactionHash  string            `json:"prev_transaction_hash"`
	PrevTransactionIndex uint32            `json:"prev_transaction_index"`
	ScriptLength         uint64            `json:"script_length"`
	ScriptSig            string            `json:"script_sig"`
	ScriptSigAsm         string            `json:"script_sig_asm"`
	ScriptType           string            `json:"script_type"`
	SequenceNumber       uint32            `json:"sequence_number"`
	RelativeTimelock     *RelativeTimelock `json:"relative_timelock,omitempty"`
	WitnessCount         uint64            `json:"witness_count"`
	Witnesses            []string          `json:"witnesses,omitempty"`
}

type RelativeTimelock struct {
	Type  string `json:"type"`
	Value uint32 `json:"value"`
}

type Output struct {
	Value           uint64        `json:"value"`
	ScriptLength    uint64        `json:"script_length"`
	ScriptPubkey    string        `json:"script_pubkey"`
	ScriptPubkeyAsm string        `json:"script_pubkey_asm"`
	ScriptType      string        `json:"script_type"`
	Address         *string       `json:"address,omitempty"`
	OpReturn        *OpReturn     `json:"op_return,omitempty"`
}

type OpReturn struct {
	DataHex  string  `json:"data_hex"`
	DataUTF8 *string `json:"data_utf8,omitempty"`
	Protocol string  `json:"protocol"`
}

// Network selects the address-encoding parameters used when deriving an
// Output's Address field; it mirrors the teacher's analyzer.GetAddressFromScript
// network argument ("mainnet" or anything else for testnet3).
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Build renders block for display/JSON output. Input script classification
// has no access to the spent output's script (this codec never resolves a
// UTXO set — see spec.md's blockchain-semantics-validation non-goal), so
// inputs are classified using only their own scriptSig/witness shape.
func Build(block *types.Block, network Network) *Block {
	out := &Block{
		Size:             block.Size,
		Version:          block.Version,
		PrevBlock:        hashHex(block.PrevBlock),
		MerkleRoot:       hashHex(block.MerkleRoot),
		Time:             block.Time,
		Bits:             block.Bits,
		Nonce:            block.Nonce,
		Hash:             hashHex(block.Hash),
		TransactionCount: block.TransactionCount,
		Transactions:     make([]Transaction, 0, len(block.Transactions)),
	}

	for _, tx := range block.Transactions {
		out.Transactions = append(out.Transactions, buildTransaction(tx, network))
	}

	return out
}

func buildTransaction(tx *types.Transaction, network Network) Transaction {
	out := Transaction{
		Version:      tx.Version,
		Flag:         tx.Flag,
		InputCount:   tx.InputCount,
		OutputCount:  tx.OutputCount,
		LockTime:     tx.LockTime,
		LockTimeType: analyzer.GetLocktimeType(tx.LockTime),
		Inputs:       make([]Input, 0, len(tx.Inputs)),
		Outputs:      make([]Output, 0, len(tx.Outputs)),
	}

	sequences := make([]uint32, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		out.Inputs = append(out.Inputs, buildInput(in))
		sequences = append(sequences, in.SequenceNumber)
	}
	out.RBFSignaling = analyzer.IsRBFSignaling(sequences)

	for _, o := range tx.Outputs {
		out.Outputs = append(out.Outputs, buildOutput(o, network))
	}

	return out
}

func buildInput(in *types.Input) Input {
	witnessData := make([][]byte, 0, len(in.Witnesses))
	witnessHex := make([]string, 0, len(in.Witnesses))
	for _, w := range in.Witnesses {
		witnessData = append(witnessData, w.Data)
		witnessHex = append(witnessHex, hex.EncodeToString(w.Data))
	}

	// prevoutScript is unavailable without a UTXO set; pass nil and let
	// ClassifyInputScript fall back to shape-only classification.
	scriptType := analyzer.ClassifyInputScript(in.Script, witnessData, nil)

	out := Input{
		PrevTransactionHash:  hashHex(in.PrevTransactionHash),
		PrevTransactionIndex: in.PrevTransactionIndex,
		ScriptLength:         in.ScriptLength,
		ScriptSig:            hex.EncodeToString(in.Script),
		ScriptSigAsm:         analyzer.DisassembleScript(in.Script),
		ScriptType:           scriptType,
		SequenceNumber:       in.SequenceNumber,
		WitnessCount:         in.WitnessCount,
		Witnesses:            witnessHex,
	}

	if enabled, tlType, value := analyzer.ParseRelativeTimelock(in.SequenceNumber); enabled {
		out.RelativeTimelock = &RelativeTimelock{Type: tlType, Value: value}
	}

	return out
}

func buildOutput(o *types.Output, network Network) Output {
	out := Output{
		Value:           o.Value,
		ScriptLength:    o.ScriptLength,
		ScriptPubkey:    hex.EncodeToString(o.Script),
		ScriptPubkeyAsm: analyzer.DisassembleScript(o.Script),
		ScriptType:      analyzer.ClassifyOutputScript(o.Script),
	}

	if addr := analyzer.GetAddressFromScript(o.Script, string(network)); addr != nil {
		out.Address = addr
	}

	if out.ScriptType == "op_return" {
		dataHex, dataUTF8, protocol := analyzer.ParseOpReturn(o.Script)
		out.OpReturn = &OpReturn{DataHex: dataHex, DataUTF8: dataUTF8, Protocol: protocol}
	}

	return out
}

// hashHex hex-encodes a hash field without reversing it: every hash field
// in the entity model is already stored in display order (pkg/utils'
// ReadHash/BlockHeaderHash reverse on read), whereas chainhash.Hash.String()
// assumes internal/wire order and would reverse it a second time.
func hashHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
