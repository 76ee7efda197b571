package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/msgcat"
)

// ErrInvalidCommand is returned for input that is not a move command.
var ErrInvalidCommand = errors.New("invalid command")

// ParseMove reads "E2-E4". Spaces are ignored and file letters may be lower
// case. Squares off the board parse fine; the board rejects them later.
func ParseMove(s string) (from, to chess.Square, err error) {
	t := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	parts := strings.Split(t, "-")
	if len(parts) != 2 {
		return from, to, fmt.Errorf("%w: want FROM-TO, got %q", ErrInvalidCommand, s)
	}
	if from, err = parseSquare(parts[0]); err != nil {
		return from, to, err
	}
	if to, err = parseSquare(parts[1]); err != nil {
		return from, to, err
	}
	return from, to, nil
}

func parseSquare(s string) (chess.Square, error) {
	if len(s) < 2 {
		return chess.Square{}, fmt.Errorf("%w: bad square %q", ErrInvalidCommand, s)
	}
	rank, err := strconv.Atoi(s[1:])
	if err != nil {
		return chess.Square{}, fmt.Errorf("%w: bad rank in %q", ErrInvalidCommand, s)
	}
	return chess.NewSquare(s[0], rank), nil
}

// ParsePromotion maps the answer to the promotion prompt to a piece kind.
// Blank or unknown answers choose a queen.
func ParsePromotion(s string) chess.Kind {
	s = strings.TrimSpace(s)
	if s == "" {
		return chess.Queen
	}
	k, err := chess.ParseKind(s[:1])
	if err != nil {
		return chess.Queen
	}
	return chess.PromotionKind(k)
}

// DescribeMoveError turns a rejected move into catalog text.
func DescribeMoveError(c *msgcat.Catalog, err error) string {
	var me *chess.MoveError
	if !errors.As(err, &me) {
		return err.Error()
	}
	if c == nil {
		return me.Error()
	}
	data := map[string]string{"From": me.From.String(), "To": me.To.String()}
	text, rerr := c.Render("move.reason."+string(me.Reason), data)
	if rerr != nil {
		return me.Error()
	}
	return text
}
