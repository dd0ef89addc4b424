package boardimg

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Piece glyphs are simplified silhouettes drawn in a 45x45 box, one per piece
// type, with FILL/STROKE placeholders swapped per side at stamp time.
const (
	fillPlaceholder   = "FILL"
	strokePlaceholder = "STROKE"

	whitePieceFill   = "#ffffff"
	whitePieceStroke = "#2b2b2b"
	blackPieceFill   = "#1f1f1f"
	blackPieceStroke = "#e8e8e8"
)

var glyphByType = map[nchess.PieceType]string{
	nchess.Pawn: `<path fill="FILL" stroke="STROKE" stroke-width="1.5" d="M22.5 10a4.5 4.5 0 0 0-2.6 8.2c-2.4 1.2-4 3.6-4 6.3 0 1.9.8 3.6 2 4.9-3 1.6-5.1 4.7-5.1 8.4h19.4c0-3.7-2.1-6.8-5.1-8.4 1.2-1.3 2-3 2-4.9 0-2.7-1.6-5.1-4-6.3A4.5 4.5 0 0 0 22.5 10z"/>`,

	nchess.Rook: `<g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">` +
		`<path d="M14 11h3.5v3h4v-3h2.5v3h4v-3H32v7H14z"/>` +
		`<path d="M16 18h13l-1 12H17z"/>` +
		`<path d="M14.5 30h16l1.5 4h-19z"/>` +
		`<path d="M12 34h21v4H12z"/></g>`,

	nchess.Knight: `<g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">` +
		`<path d="M14 38h19c0-9-2.5-16.5-9.5-19.5l.8-5.5-3.6 2.8-1.8-3.3-1.2 4.8c-3.9 2-6.2 5.7-6.2 9.2l4.2-1.3 1.8 2.8-3.5 3.6z"/></g>`,

	nchess.Bishop: `<g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">` +
		`<circle cx="22.5" cy="9.5" r="2.5"/>` +
		`<path d="M22.5 13.5c-4.2 3.1-6.8 7.2-6.8 11.2 0 3 1.6 5.6 4.1 7.1h5.4c2.5-1.5 4.1-4.1 4.1-7.1 0-4-2.6-8.1-6.8-11.2z"/>` +
		`<path d="M22.5 19v7M19.5 23h6" fill="none" stroke-linecap="round"/>` +
		`<path d="M14 34h17v4H14z"/></g>`,

	nchess.Queen: `<g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">` +
		`<circle cx="10" cy="12" r="2"/><circle cx="16.3" cy="9.5" r="2"/>` +
		`<circle cx="22.5" cy="8.5" r="2"/><circle cx="28.7" cy="9.5" r="2"/>` +
		`<circle cx="35" cy="12" r="2"/>` +
		`<path d="M11 15l2.5 13h18L34 15l-5.3 5.5-3.2-7.5-3 7.5-3-7.5-3.2 7.5z"/>` +
		`<path d="M13.5 30h18l1.5 4h-21z"/>` +
		`<path d="M12 34h21v4H12z"/></g>`,

	nchess.King: `<g fill="FILL" stroke="STROKE" stroke-width="1.5" stroke-linejoin="round">` +
		`<path d="M21 6h3v3h3v3h-3v4h-3v-4h-3V9h3z"/>` +
		`<path d="M22.5 16.5c-5.2 0-9.3 3.6-9.3 8.2 0 2.8 1.5 5.2 3.9 6.8h10.8c2.4-1.6 3.9-4 3.9-6.8 0-4.6-4.1-8.2-9.3-8.2z"/>` +
		`<path d="M13 33.5h19v4.5H13z"/></g>`,
}

func glyphSVG(piece nchess.Piece) string {
	glyph, ok := glyphByType[piece.Type()]
	if !ok {
		return ""
	}
	fill, stroke := whitePieceFill, whitePieceStroke
	if piece.Color() == nchess.Black {
		fill, stroke = blackPieceFill, blackPieceStroke
	}
	glyph = strings.ReplaceAll(glyph, fillPlaceholder, fill)
	return strings.ReplaceAll(glyph, strokePlaceholder, stroke)
}
