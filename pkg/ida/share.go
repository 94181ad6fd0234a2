package ida

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	shareVersion    = 1
	shareHeaderSize = 1 + 1 + 8
)

// Share is one of the n outputs of a dispersal.
type Share struct {
	// ID is the evaluation point, 1..n.
	ID byte `json:"id"`
	// Length is the size of the original data in bytes.
	Length uint64 `json:"length"`
	// Body holds one evaluation per k-byte chunk of the data.
	Body []byte `json:"body"`
}

// BodySize returns ceil(length/k), the body size of every share of a
// dispersal of length bytes with threshold k. It returns -1 when the size
// does not fit in an int.
func BodySize(length uint64, k int) int {
	if k <= 0 {
		return 0
	}
	size := length / uint64(k)
	if length%uint64(k) != 0 {
		size++
	}
	if size > math.MaxInt {
		return -1
	}
	return int(size)
}

// Validate checks the share against threshold k.
func (s *Share) Validate(k int) error {
	if s.ID == 0 {
		return fmt.Errorf("%w: id cannot be 0", ErrInvalidShare)
	}
	if s.Length > math.MaxInt {
		return fmt.Errorf("%w: share %d length %d does not fit in memory", ErrInvalidShare, s.ID, s.Length)
	}
	if want := BodySize(s.Length, k); len(s.Body) != want {
		return fmt.Errorf("%w: share %d body is %d bytes, want %d for length %d and threshold %d",
			ErrInvalidShare, s.ID, len(s.Body), want, s.Length, k)
	}
	return nil
}

// MarshalBinary encodes the share as version, id, big-endian length, body.
func (s Share) MarshalBinary() ([]byte, error) {
	buf := make([]byte, shareHeaderSize+len(s.Body))
	buf[0] = shareVersion
	buf[1] = s.ID
	binary.BigEndian.PutUint64(buf[2:10], s.Length)
	copy(buf[shareHeaderSize:], s.Body)
	return buf, nil
}

// UnmarshalBinary decodes the form produced by MarshalBinary.
func (s *Share) UnmarshalBinary(data []byte) error {
	if len(data) < shareHeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrInvalidShare, len(data), shareHeaderSize)
	}
	if data[0] != shareVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidShare, data[0])
	}
	if data[1] == 0 {
		return fmt.Errorf("%w: id cannot be 0", ErrInvalidShare)
	}

	s.ID = data[1]
	s.Length = binary.BigEndian.Uint64(data[2:10])
	s.Body = append([]byte(nil), data[shareHeaderSize:]...)
	return nil
}

func (s Share) String() string {
	return fmt.Sprintf("share{id=%d length=%d body=%dB}", s.ID, s.Length, len(s.Body))
}
