package gamestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/chess"
)

// ComputerName is the player name stored for the computer side.
const ComputerName = "computer"

// Record is the stored form of one game. The field names follow the
// games.json layout used by the console program.
type Record struct {
	ID                 int64          `json:"id"`
	Players            []PlayerRecord `json:"players"`
	CurrentPlayerColor chess.Color    `json:"currentPlayerColor"`
	Board              []PieceRecord  `json:"board"`
	Moves              []MoveRecord   `json:"moves"`
	Status             string         `json:"status,omitempty"`
	Winner             chess.Color    `json:"winner,omitempty"`
	Method             string         `json:"method,omitempty"`
	StartedAt          time.Time      `json:"startedAt,omitzero"`
}

type PlayerRecord struct {
	Email string      `json:"email"`
	Color chess.Color `json:"color"`
}

type PieceRecord struct {
	Type     string       `json:"type"`
	Color    chess.Color  `json:"color"`
	Position chess.Square `json:"position"`
}

type CapturedRecord struct {
	Type  string      `json:"type"`
	Color chess.Color `json:"color"`
}

type MoveRecord struct {
	PlayerColor chess.Color     `json:"playerColor"`
	From        chess.Square    `json:"from"`
	To          chess.Square    `json:"to"`
	Captured    *CapturedRecord `json:"captured,omitempty"`
	Promotion   string          `json:"promotion,omitempty"`
}

// Apply replaces the game state in r with g, keeping the start time.
func (r *Record) Apply(g *chess.Game) {
	started := r.StartedAt
	*r = Encode(g)
	r.StartedAt = started
}

// Player returns the name stored for color c.
func (r *Record) Player(c chess.Color) string {
	for _, p := range r.Players {
		if p.Color == c {
			return p.Email
		}
	}
	return ""
}

// HumanColor finds the side not played by the computer. ok is false when
// both or neither side is human.
func (r *Record) HumanColor() (chess.Color, bool) {
	var found chess.Color
	n := 0
	for _, p := range r.Players {
		if p.Email != ComputerName {
			found = p.Color
			n++
		}
	}
	return found, n == 1
}

// Finished reports whether the stored game has ended.
func (r *Record) Finished() bool {
	s, err := parseStatus(r.Status)
	return err == nil && s.Terminal()
}

// Encode converts g to its stored form.
func Encode(g *chess.Game) Record {
	s := g.Snapshot()
	r := Record{
		ID: s.ID,
		Players: []PlayerRecord{
			{Email: s.WhiteName, Color: chess.White},
			{Email: s.BlackName, Color: chess.Black},
		},
		CurrentPlayerColor: s.Turn,
		Board:              make([]PieceRecord, 0, len(s.Board)),
		Moves:              make([]MoveRecord, 0, len(s.Moves)),
		Status:             s.Outcome.Status.String(),
		Winner:             s.Outcome.Winner,
		Method:             string(s.Outcome.Method),
	}
	for _, pl := range s.Board {
		r.Board = append(r.Board, PieceRecord{
			Type:     pl.Piece.Kind.String(),
			Color:    pl.Piece.Color,
			Position: pl.Square,
		})
	}
	for _, m := range s.Moves {
		mr := MoveRecord{PlayerColor: m.Color, From: m.From, To: m.To}
		if c, ok := m.Capture(); ok {
			mr.Captured = &CapturedRecord{Type: c.Kind.String(), Color: c.Color}
		}
		if m.Promotion != chess.NoKind {
			mr.Promotion = m.Promotion.String()
		}
		r.Moves = append(r.Moves, mr)
	}
	return r
}

// Decode rebuilds a game from r. The stored board is trusted; moves are not
// replayed.
func Decode(r Record) (*chess.Game, error) {
	s := chess.Snapshot{
		ID:        r.ID,
		WhiteName: r.Player(chess.White),
		BlackName: r.Player(chess.Black),
		Turn:      r.CurrentPlayerColor,
	}
	for _, pr := range r.Board {
		k, err := chess.ParseKind(pr.Type)
		if err != nil {
			return nil, fmt.Errorf("decode game %d: board %v: %w", r.ID, pr.Position, err)
		}
		s.Board = append(s.Board, chess.Placement{
			Square: pr.Position,
			Piece:  chess.Piece{Kind: k, Color: pr.Color},
		})
	}
	for i, mr := range r.Moves {
		m := chess.Move{Color: mr.PlayerColor, From: mr.From, To: mr.To}
		if mr.Captured != nil {
			k, err := chess.ParseKind(mr.Captured.Type)
			if err != nil {
				return nil, fmt.Errorf("decode game %d: move %d: %w", r.ID, i, err)
			}
			m.Captured = chess.Piece{Kind: k, Color: mr.Captured.Color}
		}
		if mr.Promotion != "" {
			k, err := chess.ParseKind(mr.Promotion)
			if err != nil {
				return nil, fmt.Errorf("decode game %d: move %d: %w", r.ID, i, err)
			}
			m.Promotion = k
		}
		s.Moves = append(s.Moves, m)
	}
	status, err := parseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("decode game %d: %w", r.ID, err)
	}
	s.Outcome = chess.Outcome{Status: status, Winner: r.Winner, Method: chess.Method(r.Method)}
	return chess.Restore(s)
}

func parseStatus(s string) (chess.Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NOT_STARTED", "IN_PROGRESS":
		return chess.StatusInProgress, nil
	case "CHECKMATE":
		return chess.StatusCheckmate, nil
	case "DRAW":
		return chess.StatusDraw, nil
	case "RESIGNED":
		return chess.StatusResigned, nil
	default:
		return chess.StatusNotStarted, fmt.Errorf("unknown status %q", s)
	}
}
