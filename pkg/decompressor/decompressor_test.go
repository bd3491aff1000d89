package decompressor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"btcompress/pkg/compressor"
	"btcompress/pkg/parser"
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

func blockAt(seed byte, blockTime uint32) *types.Block {
	return &types.Block{
		Version:    1,
		PrevBlock:  sampleHash(seed),
		MerkleRoot: sampleHash(seed + 1),
		Time:       blockTime,
		Bits:       0x1d00ffff,
		Nonce:      uint32(seed),
		Transactions: []*types.Transaction{
			{
				Version: 1,
				Inputs: []*types.Input{
					{PrevTransactionHash: sampleHash(seed + 2), PrevTransactionIndex: 0, Script: []byte{seed}, SequenceNumber: 0xffffffff, Witnesses: []*types.Witness{}},
				},
				Outputs: []*types.Output{
					{Value: uint64(seed), Script: []byte{0x51}},
				},
				LockTime: 0,
			},
		},
	}
}

// TestCompressDecompressRoundTripPreservesOrder writes three blocks
// out of time order, compresses (which sorts by time), then decompresses
// (which restores original order), and checks the final canonical stream
// matches a fresh canonical rendering of the blocks in their original
// order — spec section 8's "time-reordering is transparent to the caller".
func TestCompressDecompressRoundTripPreservesOrder(t *testing.T) {
	blocks := []*types.Block{
		blockAt(0x01, 3000),
		blockAt(0x10, 1000),
		blockAt(0x20, 2000),
	}

	raw := &memRWS{}
	for i, b := range blocks {
		if err := parser.WriteBlock(raw, b); err != nil {
			t.Fatalf("write fixture block %d: %v", i, err)
		}
	}

	compressedOut := &memRWS{}
	rawReader := &memRWS{buf: raw.buf}
	if err := compressor.Compress(context.Background(), rawReader, compressedOut, compressor.CompressOptions{}); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	decompressedOut := &memRWS{}
	compressedReader := &memRWS{buf: compressedOut.buf}
	if err := Decompress(context.Background(), compressedReader, decompressedOut); err != nil {
		t.Fatalf("Decompress: %v", err)
	}

	if !bytes.Equal(decompressedOut.buf, raw.buf) {
		t.Fatalf("round trip did not reproduce the original canonical stream byte-for-byte\ngot:  %x\nwant: %x", decompressedOut.buf, raw.buf)
	}
}

func TestCompressDecompressDedupsAcrossBlocks(t *testing.T) {
	shared := sampleHash(0x77)
	block1 := blockAt(0x01, 100)
	block1.Transactions[0].Inputs[0].PrevTransactionHash = shared
	block2 := blockAt(0x02, 200)
	block2.Transactions[0].Inputs[0].PrevTransactionHash = shared

	raw := &memRWS{}
	if err := parser.WriteBlock(raw, block1); err != nil {
		t.Fatal(err)
	}
	if err := parser.WriteBlock(raw, block2); err != nil {
		t.Fatal(err)
	}

	compressedOut := &memRWS{}
	rawReader := &memRWS{buf: raw.buf}
	if err := compressor.Compress(context.Background(), rawReader, compressedOut, compressor.CompressOptions{}); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	decompressedOut := &memRWS{}
	compressedReader := &memRWS{buf: compressedOut.buf}
	if err := Decompress(context.Background(), compressedReader, decompressedOut); err != nil {
		t.Fatalf("Decompress: %v", err)
	}

	if !bytes.Equal(decompressedOut.buf, raw.buf) {
		t.Fatal("decompressed stream did not match the original even though the shared hash should have been deduped and restored")
	}
}
