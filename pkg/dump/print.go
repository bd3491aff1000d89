package dump

import (
	"fmt"
	"io"
	"time"
)

// Fprint writes block in the original program's printBlockHeader/
// printTransaction/printInput/printOutput text format (see
// _examples/original_source/block.h et al.), extended with the script
// type and address lines the teacher's analyzer package adds.
func Fprint(w io.Writer, block *Block) error {
	fmt.Fprintf(w, "Block size: %d bytes\n", block.Size)
	fmt.Fprintf(w, "Block version: 0x%x\n", block.Version)
	fmt.Fprintf(w, "Previous block hash: 0x%s\n", block.PrevBlock)
	fmt.Fprintf(w, "Merkle root: 0x%s\n", block.MerkleRoot)

	t := time.Unix(int64(block.Time), 0).UTC()
	fmt.Fprintf(w, "Time: 0x%08x (%s UTC)\n", block.Time, t.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Bits: 0x%08x\n", block.Bits)
	fmt.Fprintf(w, "Nonce: 0x%08x\n", block.Nonce)
	fmt.Fprintf(w, "Block hash: 0x%s\n", block.Hash)
	fmt.Fprintf(w, "Transaction count: %d\n", block.TransactionCount)

	for i, tx := range block.Transactions {
		fmt.Fprintf(w, "\n--- Transaction %d ---\n", i)
		printTransaction(w, &tx)
	}

	return nil
}

func printTransaction(w io.Writer, tx *Transaction) {
	fmt.Fprintf(w, "Version: %d\n", tx.Version)
	fmt.Fprintf(w, "Flag: %t\n", tx.Flag)
	fmt.Fprintf(w, "Input count: %d\n", tx.InputCount)
	for _, in := range tx.Inputs {
		printInput(w, &in)
	}

	fmt.Fprintf(w, "Output count: %d\n", tx.OutputCount)
	for _, out := range tx.Outputs {
		printOutput(w, &out)
	}

	fmt.Fprintf(w, "Lock time: 0x%x (%s)\n", tx.LockTime, tx.LockTimeType)
	fmt.Fprintf(w, "RBF signaling: %t\n", tx.RBFSignaling)
}

func printInput(w io.Writer, in *Input) {
	fmt.Fprintf(w, "Previous transaction hash: 0x%s\n", in.PrevTransactionHash)
	fmt.Fprintf(w, "Previous transaction index: %d\n", in.PrevTransactionIndex)
	fmt.Fprintf(w, "Script length: %d\n", in.ScriptLength)
	fmt.Fprintf(w, "Script signature: 0x%s\n", in.ScriptSig)
	if in.ScriptSigAsm != "" {
		fmt.Fprintf(w, "Script signature (asm): %s\n", in.ScriptSigAsm)
	}
	fmt.Fprintf(w, "Script type: %s\n", in.ScriptType)
	fmt.Fprintf(w, "Sequence number: 0x%08x\n", in.SequenceNumber)
	if in.RelativeTimelock != nil {
		fmt.Fprintf(w, "Relative timelock: %s %d\n", in.RelativeTimelock.Type, in.RelativeTimelock.Value)
	}
	for i, wit := range in.Witnesses {
		fmt.Fprintf(w, "Witness %d: 0x%s\n", i, wit)
	}
}

func printOutput(w io.Writer, out *Output) {
	fmt.Fprintf(w, "Value: %d\n", out.Value)
	fmt.Fprintf(w, "Script length: %d\n", out.ScriptLength)
	fmt.Fprintf(w, "Script pubkey: 0x%s\n", out.ScriptPubkey)
	if out.ScriptPubkeyAsm != "" {
		fmt.Fprintf(w, "Script pubkey (asm): %s\n", out.ScriptPubkeyAsm)
	}
	fmt.Fprintf(w, "Script type: %s\n", out.ScriptType)
	if out.Address != nil {
		fmt.Fprintf(w, "Address: %s\n", *out.Address)
	}
	if out.OpReturn != nil {
		fmt.Fprintf(w, "OP_RETURN data: 0x%s (protocol: %s)\n", out.OpReturn.DataHex, out.OpReturn.Protocol)
		if out.OpReturn.DataUTF8 != nil {
			fmt.Fprintf(w, "OP_RETURN utf8: %s\n", *out.OpReturn.DataUTF8)
		}
	}
}
