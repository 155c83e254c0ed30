package basic

import (
	"math"
)

// maxExtent bounds the size of rasterized shapes.
const maxExtent = 1 << 16

// Box styles for BOX: ASCII, single line, double line.
var boxStyles = [...][6]rune{
	{'+', '+', '+', '+', '-', '|'},
	{'┌', '┐', '└', '┘', '─', '│'},
	{'╔', '╗', '╚', '╝', '═', '║'},
}

// plot forwards one cell to the backend. Cells outside the uint16 grid are dropped.
func (e *Executor) plot(x, y int, ch rune, fg, bg uint8) {
	if x < 0 || y < 0 || x > math.MaxUint16 || y > math.MaxUint16 {
		return
	}
	e.backend.DrawPixel(uint16(x), uint16(y), ch, fg, bg)
}

func (e *Executor) evalInt(x Expr) (int, error) {
	n, err := e.evalNumber(x)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, illegalQuantity("%s out of range", formatNumber(n))
	}
	return int(math.Floor(n)), nil
}

func (e *Executor) evalColor(x Expr, def uint8) (uint8, error) {
	if x == nil {
		return def, nil
	}
	n, err := e.evalNumber(x)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, illegalQuantity("color %s out of range", formatNumber(n))
	}
	return uint8(n), nil
}

// evalChar accepts a string (first character counts) or a character code.
func (e *Executor) evalChar(x Expr, def rune) (rune, error) {
	val, err := e.eval(x)
	if err != nil {
		return 0, err
	}
	if val.IsNumeric {
		if val.NumValue < 0 || val.NumValue > math.MaxInt32 {
			return 0, illegalQuantity("character code %s out of range", formatNumber(val.NumValue))
		}
		return rune(val.NumValue), nil
	}
	for _, r := range val.StrValue {
		return r, nil
	}
	return def, nil
}

func (e *Executor) cmdPlot(s *PlotStmt) error {
	x, err := e.evalInt(s.X)
	if err != nil {
		return err
	}
	y, err := e.evalInt(s.Y)
	if err != nil {
		return err
	}
	ch, err := e.evalChar(s.Ch, ' ')
	if err != nil {
		return err
	}
	fg, err := e.evalColor(s.FG, DefaultFG)
	if err != nil {
		return err
	}
	bg, err := e.evalColor(s.BG, DefaultBG)
	if err != nil {
		return err
	}
	e.plot(x, y, ch, fg, bg)
	return nil
}

// cmdLine draws with Bresenham.
func (e *Executor) cmdLine(s *LineStmt) error {
	var c [4]int
	for i, x := range []Expr{s.X0, s.Y0, s.X1, s.Y1} {
		n, err := e.evalInt(x)
		if err != nil {
			return err
		}
		c[i] = n
	}
	ch, err := e.evalChar(s.Ch, '*')
	if err != nil {
		return err
	}
	x0, y0, x1, y1 := c[0], c[1], c[2], c[3]
	dx, dy := abs(x1-x0), abs(y1-y0)
	if dx > maxExtent || dy > maxExtent {
		return illegalQuantity("LINE too long")
	}
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	errTerm := dx - dy
	for {
		e.plot(x0, y0, ch, DefaultFG, DefaultBG)
		if x0 == x1 && y0 == y1 {
			return nil
		}
		e2 := 2 * errTerm
		if e2 > -dy {
			errTerm -= dy
			x0 += sx
		}
		if e2 < dx {
			errTerm += dx
			y0 += sy
		}
	}
}

func (e *Executor) cmdBox(s *BoxStmt) error {
	var c [4]int
	for i, x := range []Expr{s.X, s.Y, s.W, s.H} {
		n, err := e.evalInt(x)
		if err != nil {
			return err
		}
		c[i] = n
	}
	style := 0
	if s.Style != nil {
		n, err := e.evalInt(s.Style)
		if err != nil {
			return err
		}
		style = n
	}
	x, y, w, h := c[0], c[1], c[2], c[3]
	if w > maxExtent || h > maxExtent {
		return illegalQuantity("BOX too large")
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	glyphs := boxStyles[0]
	if style >= 0 && style < len(boxStyles) {
		glyphs = boxStyles[style]
	}
	tl, tr, bl, br, hz, vt := glyphs[0], glyphs[1], glyphs[2], glyphs[3], glyphs[4], glyphs[5]

	for i := 0; i < w; i++ {
		top, bottom := hz, hz
		switch i {
		case 0:
			top, bottom = tl, bl
		case w - 1:
			top, bottom = tr, br
		}
		e.plot(x+i, y, top, DefaultFG, DefaultBG)
		e.plot(x+i, y+h-1, bottom, DefaultFG, DefaultBG)
	}
	for i := 1; i < h-1; i++ {
		e.plot(x, y+i, vt, DefaultFG, DefaultBG)
		e.plot(x+w-1, y+i, vt, DefaultFG, DefaultBG)
	}
	return nil
}

// cmdCircle uses the midpoint algorithm, eight octants per step.
func (e *Executor) cmdCircle(s *CircleStmt) error {
	cx, err := e.evalInt(s.X)
	if err != nil {
		return err
	}
	cy, err := e.evalInt(s.Y)
	if err != nil {
		return err
	}
	r, err := e.evalInt(s.R)
	if err != nil {
		return err
	}
	ch, err := e.evalChar(s.Ch, 'O')
	if err != nil {
		return err
	}
	if r < 0 || r > maxExtent {
		return illegalQuantity("CIRCLE radius %d", r)
	}

	octants := func(x, y int) {
		e.plot(cx+x, cy+y, ch, DefaultFG, DefaultBG)
		e.plot(cx-x, cy+y, ch, DefaultFG, DefaultBG)
		e.plot(cx+x, cy-y, ch, DefaultFG, DefaultBG)
		e.plot(cx-x, cy-y, ch, DefaultFG, DefaultBG)
		e.plot(cx+y, cy+x, ch, DefaultFG, DefaultBG)
		e.plot(cx-y, cy+x, ch, DefaultFG, DefaultBG)
		e.plot(cx+y, cy-x, ch, DefaultFG, DefaultBG)
		e.plot(cx-y, cy-x, ch, DefaultFG, DefaultBG)
	}
	x, y, d := 0, r, 1-r
	octants(x, y)
	for x < y {
		x++
		if d < 0 {
			d += 2*x + 1
		} else {
			y--
			d += 2*(x-y) + 1
		}
		octants(x, y)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
