package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// Square is a board coordinate: file letter 'A'..'H' and rank 1..8.
// Values outside that range can be built so callers may ask about them,
// but a Board never stores them.
type Square struct {
	File byte
	Rank int
}

// NewSquare upper-cases the file letter.
func NewSquare(file byte, rank int) Square {
	if file >= 'a' && file <= 'z' {
		file -= 'a' - 'A'
	}
	return Square{File: file, Rank: rank}
}

// ParseSquare parses "E2" or "e2".
func ParseSquare(s string) (Square, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Square{}, fmt.Errorf("square %q too short", s)
	}
	rank, err := strconv.Atoi(s[1:])
	if err != nil {
		return Square{}, fmt.Errorf("square %q: bad rank: %w", s, err)
	}
	sq := NewSquare(s[0], rank)
	if !sq.InBounds() {
		return Square{}, fmt.Errorf("square %q off the board", s)
	}
	return sq, nil
}

// MustSquare is ParseSquare for literals; it panics on bad input.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// InBounds reports whether the square lies on the 8x8 board.
func (s Square) InBounds() bool {
	f := NewSquare(s.File, s.Rank).File
	return f >= 'A' && f <= 'H' && s.Rank >= 1 && s.Rank <= 8
}

// normalize returns s with an upper-case file.
func (s Square) normalize() Square { return NewSquare(s.File, s.Rank) }

// Offset returns the square df files and dr ranks away.
func (s Square) Offset(df, dr int) Square {
	return Square{File: byte(int(s.normalize().File) + df), Rank: s.Rank + dr}
}

// Less orders squares by rank, then by file.
func (s Square) Less(o Square) bool {
	a, b := s.normalize(), o.normalize()
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.File < b.File
}

// index maps an in-bounds square to 0..63 (A1=0, H8=63).
func (s Square) index() int {
	n := s.normalize()
	return (n.Rank-1)*8 + int(n.File-'A')
}

func (s Square) String() string {
	n := s.normalize()
	if n.File < 'A' || n.File > 'Z' {
		return fmt.Sprintf("?%d", n.Rank)
	}
	return string(n.File) + strconv.Itoa(n.Rank)
}

func (s Square) MarshalText() ([]byte, error) {
	if !s.InBounds() {
		return nil, fmt.Errorf("square %v off the board", s)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	v, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
