// Package boardimg renders a position snapshot as a PNG, for link previews
// and the share page. The board is composed as an SVG document, rasterized,
// then resampled to the requested size.
package boardimg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

const (
	glyphBox   = 45 // per-square viewBox edge shared by all piece glyphs
	boardBox   = glyphBox * 8
	rasterBase = boardBox * 2 // oversampled, then scaled down

	lightFill     = "#e9cfa3"
	darkFill      = "#bb8860"
	highlightFill = "#ffe478"
)

type Options struct {
	Size int // output edge in pixels; 0 means 512
	// LastFrom/LastTo tint the squares of the most recent move.
	LastFrom string
	LastTo   string
}

// RenderPNG draws the position described by the FEN record.
func RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	size := opts.Size
	if size <= 0 {
		size = 512
	}

	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	board := nchess.NewGame(fenOpt).Position().Board()

	svg := buildBoardSVG(board, opts)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	icon.SetTarget(0, 0, rasterBase, rasterBase)

	full := image.NewRGBA(image.Rect(0, 0, rasterBase, rasterBase))
	scanner := rasterx.NewScannerGV(rasterBase, rasterBase, full, full.Bounds())
	raster := rasterx.NewDasher(rasterBase, rasterBase, scanner)
	icon.Draw(raster, 1.0)

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), full, full.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// buildBoardSVG lays out squares rank 8 down to rank 1, white at the bottom,
// then stamps a translated piece glyph on every occupied square.
func buildBoardSVG(board *nchess.Board, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d">`, boardBox, boardBox)

	squares := board.SquareMap()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := nchess.NewSquare(nchess.File(col), nchess.Rank(7-row))
			x := col * glyphBox
			y := row * glyphBox
			fill := darkFill
			if (col+row)%2 == 0 {
				fill = lightFill
			}
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				x, y, glyphBox, glyphBox, fill)
			if name := sq.String(); name == opts.LastFrom || name == opts.LastTo {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" fill-opacity="0.55"/>`,
					x, y, glyphBox, glyphBox, highlightFill)
			}
			piece, ok := squares[sq]
			if !ok || piece == nchess.NoPiece {
				continue
			}
			fmt.Fprintf(&b, `<g transform="translate(%d,%d)">%s</g>`, x, y, glyphSVG(piece))
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}
