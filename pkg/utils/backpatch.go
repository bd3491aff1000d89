package utils

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ReserveSizeSlot writes a placeholder 4-byte size field and returns its
// stream position, to be filled in later by BackpatchSize once the caller
// knows how many bytes followed it. Both the canonical and compressed
// writers use this pattern (spec section 6: "reserve a 4-byte size slot").
func ReserveSizeSlot(w io.WriteSeeker) (int64, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrap(err, "tell before size slot")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil {
		return 0, errors.Wrap(err, "write size slot placeholder")
	}
	return pos, nil
}

// BackpatchSize seeks back to slotPos, a position returned by
// ReserveSizeSlot, writes the number of bytes written since the slot
// (excluding the slot itself), and returns the stream to where it left
// off so the caller can keep appending.
func BackpatchSize(w io.WriteSeeker, slotPos int64) error {
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "tell at end of sized region")
	}
	size := uint32(end - slotPos - 4)

	if _, err := w.Seek(slotPos, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to size slot")
	}
	if err := binary.Write(w, binary.LittleEndian, size); err != nil {
		return errors.Wrap(err, "backpatch size slot")
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek back past sized region")
	}
	return nil
}
