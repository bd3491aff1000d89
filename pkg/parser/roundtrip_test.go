package parser

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"btcompress/pkg/types"
)

// memRWS is a minimal in-memory io.ReadWriteSeeker, standing in for a real
// block file so WriteBlock/ParseBlock can be exercised without touching
// disk.
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

func minimalBlock() *types.Block {
	return &types.Block{
		Version:    1,
		PrevBlock:  sampleHash(0x10),
		MerkleRoot: sampleHash(0x20),
		Time:       1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
		Transactions: []*types.Transaction{
			{
				Version: 1,
				Inputs: []*types.Input{
					{
						PrevTransactionHash:  sampleHash(0x30),
						PrevTransactionIndex: 0xffffffff,
						Script:               []byte{0x01, 0x02, 0x03},
						SequenceNumber:       0xffffffff,
						Witnesses:            []*types.Witness{},
					},
				},
				Outputs: []*types.Output{
					{Value: 5000000000, Script: []byte{0x76, 0xa9, 0x14}},
				},
				LockTime: 0,
			},
		},
	}
}

func segwitBlock() *types.Block {
	block := minimalBlock()
	tx := block.Transactions[0]
	tx.Version = 2
	tx.Flag = true
	tx.Inputs[0].SequenceNumber = 0xfffffffe
	tx.Inputs[0].Witnesses = []*types.Witness{
		{Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		{Data: []byte{}},
	}
	tx.LockTime = 600000
	return block
}

func writeAndParse(t *testing.T, block *types.Block) *types.Block {
	t.Helper()

	w := &memRWS{}
	if err := WriteBlock(w, block); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	r := &memRWS{buf: w.buf}
	got, err := ParseBlock(bufio.NewReader(r))
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	return got
}

func TestBlockRoundTrip(t *testing.T) {
	want := minimalBlock()
	got := writeAndParse(t, want)

	if got.Version != want.Version || got.Time != want.Time || got.Bits != want.Bits || got.Nonce != want.Nonce {
		t.Fatalf("header fields mismatch: got %+v, want %+v", got, want)
	}
	if got.PrevBlock != want.PrevBlock || got.MerkleRoot != want.MerkleRoot {
		t.Fatal("hash fields did not round trip")
	}
	if len(got.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(got.Transactions))
	}

	gotTx := got.Transactions[0]
	wantTx := want.Transactions[0]
	if gotTx.Flag {
		t.Fatal("non-segwit transaction round tripped with Flag set")
	}
	if len(gotTx.Inputs) != 1 || len(gotTx.Outputs) != 1 {
		t.Fatalf("wrong input/output counts: %+v", gotTx)
	}
	if gotTx.Inputs[0].PrevTransactionHash != wantTx.Inputs[0].PrevTransactionHash {
		t.Fatal("input prev-tx hash did not round trip")
	}
	if !bytes.Equal(gotTx.Inputs[0].Script, wantTx.Inputs[0].Script) {
		t.Fatal("input script did not round trip")
	}
	if gotTx.Outputs[0].Value != wantTx.Outputs[0].Value {
		t.Fatal("output value did not round trip")
	}
}

func TestBlockHashIsRecomputedNotTrusted(t *testing.T) {
	block := minimalBlock()
	w := &memRWS{}
	if err := WriteBlock(w, block); err != nil {
		t.Fatal(err)
	}

	r := &memRWS{buf: w.buf}
	got, err := ParseBlock(bufio.NewReader(r))
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash == (chainhash.Hash{}) {
		t.Fatal("parsed block has a zero hash; expected a computed double-SHA-256")
	}
}

func TestSegwitTransactionRoundTrip(t *testing.T) {
	want := segwitBlock()
	got := writeAndParse(t, want)

	gotTx := got.Transactions[0]
	wantTx := want.Transactions[0]

	if !gotTx.Flag {
		t.Fatal("segwit transaction lost its Flag on round trip")
	}
	if gotTx.Version != wantTx.Version || gotTx.LockTime != wantTx.LockTime {
		t.Fatalf("version/locktime mismatch: got %+v, want %+v", gotTx, wantTx)
	}

	gotIn := gotTx.Inputs[0]
	wantIn := wantTx.Inputs[0]
	if gotIn.SequenceNumber != wantIn.SequenceNumber {
		t.Fatalf("sequence number mismatch: got %#x, want %#x", gotIn.SequenceNumber, wantIn.SequenceNumber)
	}
	if len(gotIn.Witnesses) != len(wantIn.Witnesses) {
		t.Fatalf("witness count mismatch: got %d, want %d", len(gotIn.Witnesses), len(wantIn.Witnesses))
	}
	for i, w := range gotIn.Witnesses {
		if !bytes.Equal(w.Data, wantIn.Witnesses[i].Data) {
			t.Fatalf("witness %d mismatch: got %x, want %x", i, w.Data, wantIn.Witnesses[i].Data)
		}
	}
}

func TestParseBlockRejectsBadMagic(t *testing.T) {
	r := &memRWS{buf: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}}
	if _, err := ParseBlock(bufio.NewReader(r)); err == nil {
		t.Fatal("expected an error for a stream not positioned at a block")
	}
}

// TestParseBlockSequentialStreamReadsEveryBlock is the regression test for
// the bug where ParseBlock wrapped its input in a fresh bufio.Reader per
// call: that reader's internal read-ahead (up to 4096 bytes) would pull in
// bytes belonging to the next block, then discard them when the call
// returned, corrupting every block after the first on a multi-block
// stream. ParseBlock now takes the caller's own *bufio.Reader so that
// lookahead carries over between calls, the way a dump of a real
// multi-block .dat file requires.
func TestParseBlockSequentialStreamReadsEveryBlock(t *testing.T) {
	const blockCount = 5

	w := &memRWS{}
	var want []*types.Block
	for i := 0; i < blockCount; i++ {
		b := minimalBlock()
		b.Nonce = uint32(i)
		b.Transactions[0].Inputs[0].Script = []byte{byte(i), byte(i + 1), byte(i + 2)}
		if err := WriteBlock(w, b); err != nil {
			t.Fatalf("write fixture block %d: %v", i, err)
		}
		want = append(want, b)
	}

	r := bufio.NewReader(&memRWS{buf: w.buf})
	for i := 0; i < blockCount; i++ {
		got, err := ParseBlock(r)
		if err != nil {
			t.Fatalf("ParseBlock on shared reader, block %d: %v", i, err)
		}
		if got.Nonce != want[i].Nonce {
			t.Fatalf("block %d: Nonce = %d, want %d (blocks after the first are being dropped or misparsed)", i, got.Nonce, want[i].Nonce)
		}
		if !bytes.Equal(got.Transactions[0].Inputs[0].Script, want[i].Transactions[0].Inputs[0].Script) {
			t.Fatalf("block %d: input script = %x, want %x", i, got.Transactions[0].Inputs[0].Script, want[i].Transactions[0].Inputs[0].Script)
		}
	}

	if _, err := ParseBlock(r); errors.Cause(err) != io.EOF {
		t.Fatalf("expected io.EOF after the last block, got %v", err)
	}
}
