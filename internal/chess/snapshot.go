package chess

import "fmt"

// Snapshot is the persisted form of a Game: enough to resume play, not to
// replay it.
type Snapshot struct {
	ID        int64
	WhiteName string
	BlackName string
	Turn      Color
	Board     []Placement
	Moves     []Move
	Outcome   Outcome
}

// Snapshot captures the current state of g.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		ID:        g.ID,
		WhiteName: g.white.Name,
		BlackName: g.black.Name,
		Turn:      g.turn,
		Board:     g.board.Pieces(),
		Moves:     g.History(),
		Outcome:   g.outcome,
	}
}

// Restore rebuilds a game from s. Capture tallies are recomputed from the
// move list, and the position signatures are rebuilt by taking the moves
// back one by one from the stored board, so repetitions span save and load.
// When the moves do not fit the board, counting starts over from the
// restored position.
func Restore(s Snapshot) (*Game, error) {
	g, err := NewGame(s.ID, NewPlayer(s.WhiteName, White), NewPlayer(s.BlackName, Black))
	if err != nil {
		return nil, err
	}
	board, err := NewBoardFrom(s.Board)
	if err != nil {
		return nil, fmt.Errorf("restore game %d: %w", s.ID, err)
	}
	g.board = board
	g.turn = s.Turn
	for _, m := range s.Moves {
		if !m.Color.Valid() {
			return nil, fmt.Errorf("restore game %d: move %v has no color", s.ID, m)
		}
		g.history = append(g.history, m)
		g.PlayerFor(m.Color).AddCapture(m.Captured)
	}
	g.outcome = s.Outcome
	if sigs, ok := unwindSignatures(board, s.Turn, s.Moves); ok {
		g.signatures = sigs
		for _, sig := range sigs {
			g.seen[sig]++
		}
	}
	if err := g.Resume(); err != nil {
		return nil, err
	}
	return g, nil
}

// unwindSignatures returns the signature of every position the moves passed
// through, oldest first, ending with b itself. ok is false when a move cannot
// be taken back on the board it led to.
func unwindSignatures(b *Board, turn Color, moves []Move) ([]Signature, bool) {
	b = b.Clone()
	sigs := make([]Signature, len(moves)+1)
	sigs[len(moves)] = SignatureOf(b, turn)
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		if m.Color.Opponent() != turn {
			return nil, false
		}
		p, ok := b.Remove(m.To)
		if !ok || p.Color != m.Color || !b.empty(m.From) {
			return nil, false
		}
		if m.Promotion != NoKind {
			p = Piece{Kind: Pawn, Color: m.Color}
		}
		if err := b.Place(m.From, p); err != nil {
			return nil, false
		}
		if !m.Captured.IsZero() {
			if err := b.Place(m.To, m.Captured); err != nil {
				return nil, false
			}
		}
		turn = m.Color
		sigs[i] = SignatureOf(b, turn)
	}
	return sigs, true
}
