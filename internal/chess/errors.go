package chess

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is matched by every *MoveError.
var ErrInvalidMove = errors.New("invalid chess move")

// Reason tells apart the ways a move can be rejected.
type Reason string

const (
	ReasonOutOfBounds           Reason = "out_of_bounds"
	ReasonNoPiece               Reason = "no_piece"
	ReasonWrongColor            Reason = "wrong_color"
	ReasonOwnPieceAtDestination Reason = "own_piece_at_destination"
	ReasonNotInMoveSet          Reason = "not_in_move_set"
	ReasonLeavesKingInCheck     Reason = "leaves_king_in_check"
	ReasonNotYourTurn           Reason = "not_your_turn"
	ReasonNoLegalMove           Reason = "no_legal_move"
	ReasonGameOver              Reason = "game_over"
)

// MoveError is returned by Board and Game when a move is refused.
type MoveError struct {
	Reason Reason
	From   Square
	To     Square
	Kind   Kind
}

func (e *MoveError) Error() string {
	switch e.Reason {
	case ReasonOutOfBounds:
		return "out of board"
	case ReasonNoPiece:
		return fmt.Sprintf("no piece at %s", e.From)
	case ReasonWrongColor:
		return "not your piece"
	case ReasonOwnPieceAtDestination:
		return "destination occupied by your piece"
	case ReasonNotInMoveSet:
		return fmt.Sprintf("illegal move for %s", e.Kind)
	case ReasonLeavesKingInCheck:
		return "move leaves king in check"
	case ReasonNotYourTurn:
		return "not your turn"
	case ReasonNoLegalMove:
		return "no legal move available"
	case ReasonGameOver:
		return "game is over"
	default:
		return string(e.Reason)
	}
}

// Is lets errors.Is(err, ErrInvalidMove) match.
func (e *MoveError) Is(target error) bool { return target == ErrInvalidMove }

// ReasonOf extracts the rejection reason, or "" when err is not a *MoveError.
func ReasonOf(err error) Reason {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Reason
	}
	return ""
}

func moveErr(r Reason, from, to Square) *MoveError {
	return &MoveError{Reason: r, From: from, To: to}
}
