package compressed

import (
	"bytes"
	"io"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"btcompress/pkg/types"
)

// memRWS is a minimal in-memory io.ReadWriteSeeker; see pkg/parser's
// identical test helper for why a real file isn't needed here.
type memRWS struct {
	buf []byte
	pos int64
}

func (m *memRWS) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memRWS) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memRWS) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	}
	m.pos = base + offset
	return m.pos, nil
}

func sampleHash(seed byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = seed + byte(i)
	}
	return h
}

func twoInputBlock() *types.Block {
	shared := sampleHash(0x55)
	return &types.Block{
		Version:    1,
		PrevBlock:  sampleHash(0x10),
		MerkleRoot: sampleHash(0x20),
		Time:       1600000000,
		Bits:       0x1d00ffff,
		Nonce:      42,
		Transactions: []*types.Transaction{
			{
				Version: 1,
				Inputs: []*types.Input{
					{PrevTransactionHash: shared, PrevTransactionIndex: 0, Script: []byte{0xaa}, SequenceNumber: 0xffffffff, Witnesses: []*types.Witness{}},
					{PrevTransactionHash: shared, PrevTransactionIndex: 1, Script: []byte{0xbb}, SequenceNumber: 0xffffffff, Witnesses: []*types.Witness{}},
				},
				Outputs: []*types.Output{
					{Value: 100, Script: []byte{0x51}},
				},
				LockTime: 0,
			},
		},
	}
}

func TestCompressedBlockRoundTripDedupsRepeatedHash(t *testing.T) {
	block := twoInputBlock()
	ctx := types.NewCompressionContext()

	w := &memRWS{}
	if err := WriteBlock(w, block, ctx, true); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if ctx.Len() != 1 {
		t.Fatalf("dedup context has %d entries, want 1 (both inputs share a prev hash)", ctx.Len())
	}
	if err := WriteHashTable(w, ctx); err != nil {
		t.Fatalf("WriteHashTable: %v", err)
	}

	r := &memRWS{buf: w.buf}
	got, err := ReadBlock(r, types.NewDecompressionContext(ctx.Hashes()))
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}

	if len(got.Transactions) != 1 || len(got.Transactions[0].Inputs) != 2 {
		t.Fatalf("unexpected shape after round trip: %+v", got)
	}
	for i, in := range got.Transactions[0].Inputs {
		want := block.Transactions[0].Inputs[i]
		if in.PrevTransactionHash != want.PrevTransactionHash {
			t.Fatalf("input %d prev hash mismatch: got %v, want %v", i, in.PrevTransactionHash, want.PrevTransactionHash)
		}
		if !bytes.Equal(in.Script, want.Script) {
			t.Fatalf("input %d script mismatch", i)
		}
	}

	// the hash table itself must be read back right after the block body,
	// with exactly one entry.
	dctx, err := ReadHashTable(r)
	if err != nil {
		t.Fatalf("ReadHashTable: %v", err)
	}
	if dctx.Len() != 1 {
		t.Fatalf("reloaded hash table has %d entries, want 1", dctx.Len())
	}
}

func TestWriteTransactionElidesDefaults(t *testing.T) {
	tx := &types.Transaction{
		Version: 1,
		Inputs: []*types.Input{
			{PrevTransactionHash: sampleHash(0x01), Script: []byte{}, SequenceNumber: defaultSequenceNumber, Witnesses: []*types.Witness{}},
		},
		Outputs:  []*types.Output{{Value: 1, Script: []byte{}}},
		LockTime: 0,
	}

	ctx := types.NewCompressionContext()
	var buf bytes.Buffer
	if err := WriteTransaction(&buf, tx, ctx, true); err != nil {
		t.Fatal(err)
	}

	flags := buf.Bytes()[0]
	if flags&flagLockTimeDefault == 0 {
		t.Error("default lock time should set flagLockTimeDefault")
	}
	if flags&flagSequenceDefault == 0 {
		t.Error("default sequence number should set flagSequenceDefault")
	}
	if flags&flagVersion2 != 0 {
		t.Error("version 1 transaction should not set flagVersion2")
	}

	dctx := types.NewDecompressionContext(ctx.Hashes())
	got, err := ReadTransaction(&buf, dctx)
	if err != nil {
		t.Fatalf("ReadTransaction: %v", err)
	}
	if got.LockTime != 0 {
		t.Errorf("LockTime = %d, want 0", got.LockTime)
	}
	if got.Inputs[0].SequenceNumber != defaultSequenceNumber {
		t.Errorf("SequenceNumber = %#x, want %#x", got.Inputs[0].SequenceNumber, defaultSequenceNumber)
	}
}

func TestWriteTransactionStrictRejectsUnsupportedVersion(t *testing.T) {
	tx := &types.Transaction{
		Version:  3,
		Outputs:  []*types.Output{{Value: 1, Script: []byte{}}},
		LockTime: 0,
	}
	ctx := types.NewCompressionContext()
	var buf bytes.Buffer
	if err := WriteTransaction(&buf, tx, ctx, true); err == nil {
		t.Fatal("expected strict mode to reject an unsupported transaction version")
	}
}

func TestWriteTransactionLossyAcceptsUnsupportedVersion(t *testing.T) {
	tx := &types.Transaction{
		Version:  3,
		Outputs:  []*types.Output{{Value: 1, Script: []byte{}}},
		LockTime: 0,
	}
	ctx := types.NewCompressionContext()
	var buf bytes.Buffer
	if err := WriteTransaction(&buf, tx, ctx, false); err != nil {
		t.Fatalf("lossy mode should not reject version 3, got: %v", err)
	}
}
