package session

import "github.com/park285/cheese-chess/internal/chess"

// Ending is how a console session stopped.
type Ending int

const (
	EndingLeft Ending = iota
	EndingResigned
	EndingDraw
	EndingCheckmate
)

func (e Ending) String() string {
	switch e {
	case EndingLeft:
		return "left"
	case EndingResigned:
		return "resigned"
	case EndingDraw:
		return "draw"
	case EndingCheckmate:
		return "checkmate"
	default:
		return "unknown"
	}
}

// EndingFor maps a game outcome to the ending that settles it. Games still
// in progress map to EndingLeft.
func EndingFor(o chess.Outcome) Ending {
	switch o.Status {
	case chess.StatusResigned:
		return EndingResigned
	case chess.StatusDraw:
		return EndingDraw
	case chess.StatusCheckmate:
		return EndingCheckmate
	default:
		return EndingLeft
	}
}

// Finished reports whether the game is over and should leave the active list.
func (e Ending) Finished() bool { return e != EndingLeft }

// DrawPolicy decides how a drawn game against the computer is scored.
type DrawPolicy int

const (
	// DrawAsComputerResign scores a draw like the computer resigning.
	DrawAsComputerResign DrawPolicy = iota
	// DrawNeutral awards only the capture points.
	DrawNeutral
)

const (
	ResignPenalty = 150
	DrawBonus     = 150
	MateBonus     = 300
)

// Settlement is the change applied to the account: the human's capture
// points plus the bonus or penalty of the ending.
func Settlement(e Ending, humanWon bool, capturePoints int, policy DrawPolicy) int {
	switch e {
	case EndingResigned:
		return capturePoints - ResignPenalty
	case EndingDraw:
		if policy == DrawNeutral {
			return capturePoints
		}
		return capturePoints + DrawBonus
	case EndingCheckmate:
		if humanWon {
			return capturePoints + MateBonus
		}
		return capturePoints - MateBonus
	default:
		return 0
	}
}
