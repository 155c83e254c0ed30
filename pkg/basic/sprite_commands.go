package basic

import (
	"math"
)

// cmdSprite creates the sprite on first use and updates it afterwards.
func (e *Executor) cmdSprite(s *SpriteStmt) error {
	idNum, err := e.evalNumber(s.ID)
	if err != nil {
		return err
	}
	if idNum < 0 || idNum > math.MaxUint32 {
		return illegalQuantity("sprite id %s out of range", formatNumber(idNum))
	}
	x, err := e.evalInt(s.X)
	if err != nil {
		return err
	}
	y, err := e.evalInt(s.Y)
	if err != nil {
		return err
	}
	ch, err := e.evalChar(s.Ch, '@')
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
	visible := true
	if s.Visible != nil {
		v, err := e.eval(s.Visible)
		if err != nil {
			return err
		}
		visible = isTruthy(v)
	}

	sp := Sprite{
		ID:      uint32(idNum),
		X:       int32(x),
		Y:       int32(y),
		Ch:      ch,
		FG:      fg,
		BG:      bg,
		Visible: visible,
	}
	if e.backend.HasSprite(sp.ID) {
		e.backend.UpdateSprite(sp)
	} else {
		e.backend.AddSprite(sp)
	}
	return nil
}
