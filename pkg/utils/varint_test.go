package utils

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 0xfc, 0xfd, 0xfe, 0xff,
		0xffff, 0x10000, 0xffffffff, 0x100000000,
		0xffffffffffffffff,
	}

	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		if buf.Len() != VarIntSize(v) {
			t.Fatalf("value %d: wrote %d bytes, VarIntSize said %d", v, buf.Len(), VarIntSize(v))
		}

		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("read back %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: wrote %d, read %d", v, got)
		}
	}
}

func TestVarIntMinimalEncoding(t *testing.T) {
	cases := []struct {
		v        uint64
		wantSize int
	}{
		{0x00, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xffff, 3},
		{0x10000, 5},
		{0xffffffff, 5},
		{0x100000000, 9},
	}

	for _, c := range cases {
		if got := VarIntSize(c.v); got != c.wantSize {
			t.Errorf("VarIntSize(%#x) = %d, want %d", c.v, got, c.wantSize)
		}
	}
}

func TestVarIntAcceptsNonMinimalTag(t *testing.T) {
	// The decoder trusts the tag byte's declared width even when the
	// value itself would fit in fewer bytes (spec section 4.1: "not
	// required to be minimal on read").
	buf := bytes.NewBuffer([]byte{0xfd, 0x01, 0x00})
	got, err := ReadVarInt(buf)
	if err != nil {
		t.Fatalf("read non-minimal varint: %v", err)
	}
	if got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestHashRoundTrip(t *testing.T) {
	var raw [chainhash.HashSize]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	h, err := chainhash.NewHash(raw[:])
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteHash(&buf, *h); err != nil {
		t.Fatalf("write hash: %v", err)
	}

	got, err := ReadHash(&buf)
	if err != nil {
		t.Fatalf("read hash: %v", err)
	}
	if got != *h {
		t.Fatalf("hash round trip mismatch: got %x, want %x", got[:], h[:])
	}
}

func TestBlockHeaderHashIsStableAndDiffers(t *testing.T) {
	headerA := make([]byte, 80)
	headerB := make([]byte, 80)
	headerB[0] = 1 // differ only in version

	hashA1 := BlockHeaderHash(headerA)
	hashA2 := BlockHeaderHash(headerA)
	if hashA1 != hashA2 {
		t.Fatal("BlockHeaderHash is not deterministic for identical input")
	}

	hashB := BlockHeaderHash(headerB)
	if hashA1 == hashB {
		t.Fatal("BlockHeaderHash produced the same hash for different headers")
	}
}
