// Package utils holds the low-level wire-format helpers shared by the raw
// and compressed codecs: the Bitcoin varint (CompactSize) codec and the
// reversed-byte-order hash reader/writer.
package utils

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"btcompress/pkg/types"
)

// ReadVarInt reads a Bitcoin-style compact-size integer: 1 byte for values
// below 0xFD, else a 1-byte tag (0xFD/0xFE/0xFF) followed by 2/4/8
// little-endian bytes. The decoder is deliberately not canonical: it
// trusts whatever length the tag byte says regardless of whether the
// value needed that many bytes.
func ReadVarInt(r io.Reader) (uint64, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return 0, errors.Wrap(err, "read varint tag")
	}

	switch tag[0] {
	case 0xfd:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, errors.Wrap(err, "read varint fd payload")
		}
		return uint64(v), nil
	case 0xfe:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, errors.Wrap(err, "read varint fe payload")
		}
		return uint64(v), nil
	case 0xff:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, errors.Wrap(err, "read varint ff payload")
		}
		return v, nil
	default:
		// tag[0] covers the full remaining range of a byte (0x00-0xFC):
		// every possible first byte is handled above or here.
		return uint64(tag[0]), nil
	}
}

// WriteVarInt writes v using the minimal encoding for its size.
func WriteVarInt(w io.Writer, v uint64) error {
	switch {
	case v < 0xfd:
		_, err := w.Write([]byte{byte(v)})
		return errors.Wrap(err, "write varint tag")
	case v <= 0xffff:
		if _, err := w.Write([]byte{0xfd}); err != nil {
			return errors.Wrap(err, "write varint fd tag")
		}
		return errors.Wrap(binary.Write(w, binary.LittleEndian, uint16(v)), "write varint fd payload")
	case v <= 0xffffffff:
		if _, err := w.Write([]byte{0xfe}); err != nil {
			return errors.Wrap(err, "write varint fe tag")
		}
		return errors.Wrap(binary.Write(w, binary.LittleEndian, uint32(v)), "write varint fe payload")
	default:
		if _, err := w.Write([]byte{0xff}); err != nil {
			return errors.Wrap(err, "write varint ff tag")
		}
		return errors.Wrap(binary.Write(w, binary.LittleEndian, v), "write varint ff payload")
	}
}

// VarIntSize returns the number of bytes WriteVarInt would emit for v.
func VarIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// wrapShortRead turns an io error from a fixed-size read into a
// types.CodecError tagged ShortRead, preserving the offset the caller
// already knows.
func wrapShortRead(err error, offset int64, msg string) error {
	if err == nil {
		return nil
	}
	return types.NewCodecError(types.ShortRead, offset, msg, err)
}

// ReadHash reads 32 bytes from the wire (little-endian/internal order) and
// returns them reversed into display (big-endian) order, matching the
// convention every hash field in the entity model uses.
func ReadHash(r io.Reader) (chainhash.Hash, error) {
	var raw [chainhash.HashSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return chainhash.Hash{}, wrapShortRead(err, -1, "read hash")
	}
	var h chainhash.Hash
	reverseInto(h[:], raw[:])
	return h, nil
}

// WriteHash writes a display-order hash back to the wire, reversing it to
// little-endian/internal order.
func WriteHash(w io.Writer, h chainhash.Hash) error {
	var raw [chainhash.HashSize]byte
	reverseInto(raw[:], h[:])
	_, err := w.Write(raw[:])
	return errors.Wrap(err, "write hash")
}

func reverseInto(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}

// BlockHeaderHash computes the double-SHA-256 of an 80-byte block header
// and returns it in display (big-endian) order, matching every other hash
// field in the entity model. chainhash.DoubleHashB computes the digest in
// internal/wire byte order; reversing it here is the same convention
// ReadHash/WriteHash apply to on-disk hash fields.
func BlockHeaderHash(header80 []byte) chainhash.Hash {
	internal := chainhash.DoubleHashB(header80)
	var h chainhash.Hash
	reverseInto(h[:], internal)
	return h
}
