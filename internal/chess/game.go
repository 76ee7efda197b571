package chess

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrGameNotStarted is returned when moves are attempted before Start or Resume.
var ErrGameNotStarted = errors.New("chess game not started")

// Status is the lifecycle state of a Game.
type Status uint8

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusCheckmate
	StatusDraw
	StatusResigned
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT_STARTED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusCheckmate:
		return "CHECKMATE"
	case StatusDraw:
		return "DRAW"
	case StatusResigned:
		return "RESIGNED"
	default:
		return fmt.Sprintf("STATUS(%d)", s)
	}
}

// Terminal reports whether no further moves may be played.
func (s Status) Terminal() bool {
	return s == StatusCheckmate || s == StatusDraw || s == StatusResigned
}

// Method names how a game ended.
type Method string

const (
	MethodNone        Method = ""
	MethodCheckmate   Method = "checkmate"
	MethodRepetition  Method = "threefold_repetition"
	MethodStalemate   Method = "stalemate"
	MethodResignation Method = "resignation"
)

// Outcome is the result of evaluating a game. Winner is zero for draws and
// unfinished games.
type Outcome struct {
	Status Status
	Winner Color
	Method Method
}

func (o Outcome) Terminal() bool { return o.Status.Terminal() }

const repetitionLimit = 3

// Game is the turn state machine around one Board and two Players.
// It is meant to be driven by a single goroutine.
type Game struct {
	ID int64

	board   *Board
	white   *Player
	black   *Player
	turn    Color
	history []Move
	outcome Outcome

	signatures []Signature
	seen       map[Signature]int
}

// NewGame creates a game in the NotStarted state with an empty board.
func NewGame(id int64, white, black *Player) (*Game, error) {
	if white == nil || black == nil {
		return nil, fmt.Errorf("new game %d: both players are required", id)
	}
	if white.Color != White || black.Color != Black {
		return nil, fmt.Errorf("new game %d: player colors must be WHITE and BLACK", id)
	}
	return &Game{
		ID:    id,
		board: NewBoard(),
		white: white,
		black: black,
		turn:  White,
		seen:  make(map[Signature]int),
	}, nil
}

// Start sets up the standard position and clears all history.
func (g *Game) Start() {
	g.board.Reset()
	g.history = nil
	g.turn = White
	g.outcome = Outcome{Status: StatusInProgress}
	g.signatures = nil
	g.seen = make(map[Signature]int)
	g.recordSignature()
}

// Resume continues a game whose board and turn were restored from storage.
// Moves are not replayed; the stored board is taken as the truth.
func (g *Game) Resume() error {
	if !g.turn.Valid() {
		return fmt.Errorf("resume game %d: invalid turn %v", g.ID, g.turn)
	}
	if g.outcome.Status == StatusNotStarted {
		g.outcome = Outcome{Status: StatusInProgress}
	}
	if len(g.signatures) == 0 {
		g.recordSignature()
	}
	return nil
}

func (g *Game) recordSignature() Signature {
	sig := SignatureOf(g.board, g.turn)
	g.signatures = append(g.signatures, sig)
	g.seen[sig]++
	return sig
}

// Board returns the live board. Callers must not mutate it.
func (g *Game) Board() *Board { return g.board }

func (g *Game) White() *Player { return g.white }
func (g *Game) Black() *Player { return g.black }

// PlayerFor returns the player holding color c.
func (g *Game) PlayerFor(c Color) *Player {
	if c == Black {
		return g.black
	}
	return g.white
}

// Turn is the color to move.
func (g *Game) Turn() Color { return g.turn }

// History returns a copy of the applied moves, oldest first.
func (g *Game) History() []Move { return append([]Move(nil), g.history...) }

// Signatures returns a copy of the recorded position signatures.
func (g *Game) Signatures() []Signature { return append([]Signature(nil), g.signatures...) }

// Repetitions reports how often sig has occurred.
func (g *Game) Repetitions(sig Signature) int { return g.seen[sig] }

func (g *Game) Outcome() Outcome { return g.outcome }
func (g *Game) Status() Status   { return g.outcome.Status }

// Winner returns the winning color once the game is decided.
func (g *Game) Winner() (Color, bool) {
	return g.outcome.Winner, g.outcome.Winner.Valid()
}

func (g *Game) IsDraw() bool { return g.outcome.Status == StatusDraw }
func (g *Game) IsOver() bool { return g.outcome.Terminal() }

func (g *Game) ensurePlayable() error {
	switch {
	case g.outcome.Status == StatusNotStarted:
		return ErrGameNotStarted
	case g.outcome.Terminal():
		return moveErr(ReasonGameOver, Square{}, Square{})
	}
	return nil
}

// TryMove plays from-to for player. promotion is used only when a pawn
// reaches its last rank.
func (g *Game) TryMove(player *Player, from, to Square, promotion Kind) (Move, error) {
	if err := g.ensurePlayable(); err != nil {
		return Move{}, err
	}
	if player == nil || player.Color != g.turn {
		return Move{}, moveErr(ReasonNotYourTurn, from, to)
	}
	promote := g.board.RequiresPromotion(from, to)
	captured, _, err := g.board.MovePiece(from, to, player.Color, promotion)
	if err != nil {
		return Move{}, err
	}
	mv := Move{Color: player.Color, From: from.normalize(), To: to.normalize(), Captured: captured}
	if promote {
		mv.Promotion = PromotionKind(promotion)
	}
	g.history = append(g.history, mv)
	g.PlayerFor(player.Color).AddCapture(captured)

	g.turn = g.turn.Opponent()
	if sig := g.recordSignature(); g.seen[sig] >= repetitionLimit {
		g.ApplyOutcome(Outcome{Status: StatusDraw, Method: MethodRepetition})
	}
	return mv, nil
}

// ComputeOutcome evaluates the position for the side to move without
// changing the game.
func (g *Game) ComputeOutcome() Outcome {
	if g.outcome.Terminal() || g.outcome.Status == StatusNotStarted {
		return g.outcome
	}
	if _, ok := g.board.KingSquare(g.turn); !ok {
		return g.outcome
	}
	if !g.board.HasLegalMove(g.turn) {
		if g.board.IsInCheck(g.turn) {
			return Outcome{Status: StatusCheckmate, Winner: g.turn.Opponent(), Method: MethodCheckmate}
		}
		return Outcome{Status: StatusDraw, Method: MethodStalemate}
	}
	if n := len(g.signatures); n > 0 && g.seen[g.signatures[n-1]] >= repetitionLimit {
		return Outcome{Status: StatusDraw, Method: MethodRepetition}
	}
	return g.outcome
}

// ApplyOutcome moves the game into a terminal state. Non-terminal outcomes
// and games that already ended are left untouched.
func (g *Game) ApplyOutcome(o Outcome) {
	if !o.Terminal() || g.outcome.Terminal() {
		return
	}
	g.outcome = o
}

// Evaluate computes the outcome and applies it when terminal.
func (g *Game) Evaluate() Outcome {
	o := g.ComputeOutcome()
	g.ApplyOutcome(o)
	return g.outcome
}

// CheckForCheckmate reports whether the side to move is mated, recording the
// win for the opponent when it is. Call it once per ply.
func (g *Game) CheckForCheckmate() bool {
	if g.outcome.Status == StatusCheckmate {
		return true
	}
	if g.outcome.Terminal() || !g.board.IsInCheck(g.turn) {
		return false
	}
	if g.board.HasLegalMove(g.turn) {
		return false
	}
	g.ApplyOutcome(Outcome{Status: StatusCheckmate, Winner: g.turn.Opponent(), Method: MethodCheckmate})
	return true
}

// MakeRandomMoveFor plays a uniformly random legal move for player.
func (g *Game) MakeRandomMoveFor(player *Player, rng *rand.Rand) (Move, error) {
	if err := g.ensurePlayable(); err != nil {
		return Move{}, err
	}
	if player == nil || player.Color != g.turn {
		return Move{}, moveErr(ReasonNotYourTurn, Square{}, Square{})
	}
	from, to, ok := player.RandomMove(g.board, rng)
	if !ok {
		return Move{}, moveErr(ReasonNoLegalMove, Square{}, Square{})
	}
	return g.TryMove(player, from, to, Queen)
}

// Resign ends the game in favour of the opponent of c.
func (g *Game) Resign(c Color) error {
	if err := g.ensurePlayable(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("resign game %d: invalid color %v", g.ID, c)
	}
	g.ApplyOutcome(Outcome{Status: StatusResigned, Winner: c.Opponent(), Method: MethodResignation})
	return nil
}
