package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/cheese-chess/internal/chess"
)

const (
	DefaultSquareSize = 72
	minSquareSize     = 16
)

// Options decorates a rendered board. Zero values are fine.
type Options struct {
	Last   *chess.Move
	Header string
	Turn   string
	Score  string
}

// Renderer draws boards as PNG images. It is safe for concurrent use.
type Renderer struct {
	squareSize int
	face       font.Face
}

// NewRenderer returns a Renderer drawing squareSize-pixel squares. Sizes
// below the minimum fall back to DefaultSquareSize.
func NewRenderer(squareSize int) *Renderer {
	if squareSize < minSquareSize {
		squareSize = DefaultSquareSize
	}
	return &Renderer{squareSize: squareSize, face: basicfont.Face7x13}
}

func (r *Renderer) SquareSize() int { return r.squareSize }

type layout struct {
	square int
	margin int
	top    int
	board  image.Rectangle
	total  image.Rectangle
}

func (r *Renderer) layout() layout {
	s := r.squareSize
	margin := s / 2
	top := s + s/2
	board := image.Rect(margin, top, margin+8*s, top+8*s)
	return layout{
		square: s,
		margin: margin,
		top:    top,
		board:  board,
		total:  image.Rect(0, 0, board.Max.X+margin, board.Max.Y+margin),
	}
}

// Render draws b into a new image.
func (r *Renderer) Render(b *chess.Board, opts Options) (*image.RGBA, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	l := r.layout()
	img := image.NewRGBA(l.total)
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, l, opts)
	drawBoardShadow(img, l.board)
	drawSquares(img, l)
	drawHighlight(img, l, opts.Last)
	if err := drawPieces(img, b, l); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, l)
	return img, nil
}

// RenderPNG renders b and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, b *chess.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := r.Render(b, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePNG writes the board with the last move highlighted.
func (r *Renderer) WritePNG(w io.Writer, b *chess.Board, last *chess.Move) error {
	opts := Options{Last: last}
	if last != nil {
		opts.Turn = last.Color.Opponent().String() + " to move"
	}
	img, err := r.Render(b, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

var (
	backgroundColor     = color.RGBA{R: 245, G: 240, B: 230, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	whiteMoveFill       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor    = color.NRGBA{0, 0, 0, 60}
	coordinateTextColor = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
)

// squareRect maps a board square to its pixel rectangle, rank 8 on top.
func squareRect(sq chess.Square, l layout) image.Rectangle {
	col := int(sq.File - 'A')
	row := 8 - sq.Rank
	x := l.board.Min.X + col*l.square
	y := l.board.Min.Y + row*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func squareColor(sq chess.Square) color.Color {
	if (int(sq.File-'A')+sq.Rank)%2 == 1 {
		return darkSquare
	}
	return lightSquare
}

func forEachSquare(fn func(sq chess.Square)) {
	for rank := 8; rank >= 1; rank-- {
		for file := byte('A'); file <= 'H'; file++ {
			fn(chess.Square{File: file, Rank: rank})
		}
	}
}

func drawBoardShadow(img *image.RGBA, board image.Rectangle) {
	shadow := image.Rect(board.Min.X+4, board.Min.Y+8, board.Max.X+6, board.Max.Y+8)
	imagedraw.Draw(img, shadow, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(img *image.RGBA, l layout) {
	forEachSquare(func(sq chess.Square) {
		imagedraw.Draw(img, squareRect(sq, l), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	})
}

func drawPieces(img *image.RGBA, b *chess.Board, l layout) error {
	for _, p := range b.Pieces() {
		pic, err := renderPieceImage(p.Piece, l.square)
		if err != nil {
			return err
		}
		imagedraw.Draw(img, squareRect(p.Square, l), pic, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight shades both squares of a white move and draws an arrow for
// a black one.
func drawHighlight(img *image.RGBA, l layout, last *chess.Move) {
	if last == nil || !last.From.InBounds() || !last.To.InBounds() {
		return
	}
	if last.Color == chess.Black {
		drawArrow(img, squareRect(last.From, l), squareRect(last.To, l), l.square, blackMoveArrow)
		return
	}
	for _, sq := range []chess.Square{last.From, last.To} {
		imagedraw.Draw(img, squareRect(sq, l), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
	}
}

func (r *Renderer) drawHUD(img *image.RGBA, l layout, opts Options) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(opts.Header)
	if title == "" {
		title = "Player vs Computer"
	}
	turn := strings.TrimSpace(opts.Turn)
	if score := strings.TrimSpace(opts.Score); score != "" {
		title += "  " + score
	}

	const (
		radius   = 8
		padding  = 12
		shadowDy = 4
	)
	height := l.square / 2
	bottom := l.board.Min.Y - l.square/4
	top := bottom - height

	titleWidth := min(drawer.MeasureString(title).Round()+padding*2, l.board.Dx())
	titleRect := image.Rect(l.board.Min.X, top, l.board.Min.X+titleWidth, bottom)
	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowDy)), radius, hudShadowColor)
	drawRoundedPanel(img, titleRect, radius, hudPanelColor)
	drawCenteredString(drawer, titleRect, truncateWithEllipsis(r.face, title, titleRect.Dx()-padding*2), hudTextPrimary)

	if turn == "" {
		return
	}
	turnWidth := drawer.MeasureString(turn).Round() + padding*2
	if free := l.board.Dx() - titleWidth - padding; turnWidth > free {
		turnWidth = free
	}
	if turnWidth <= padding*2 {
		return
	}
	turnRect := image.Rect(l.board.Max.X-turnWidth, top, l.board.Max.X, bottom)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, shadowDy)), radius, hudShadowColor)
	drawRoundedPanel(img, turnRect, radius, hudTurnPanelColor)
	drawCenteredString(drawer, turnRect, truncateWithEllipsis(r.face, turn, turnRect.Dx()-padding*2), hudTurnTextColor)
}

func (r *Renderer) drawCoordinates(img *image.RGBA, l layout) {
	drawer := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		file := string(rune('A' + i))
		fileCenter := l.board.Min.X + i*l.square + l.square/2
		drawCenteredText(drawer, file, fileCenter, l.board.Max.Y+(l.margin+ascent)/2)

		rank := strconv.Itoa(8 - i)
		rankCenter := l.board.Min.Y + i*l.square + l.square/2
		drawCenteredText(drawer, rank, l.margin/2, rankCenter+ascent/2)
	}
}
