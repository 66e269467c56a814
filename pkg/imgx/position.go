package imgx

import (
	"fmt"
	"image"
	"strings"
)

// Position anchors a smaller rectangle inside a larger one
type Position string

const (
	PositionCenter      Position = "center"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PositionCenter, PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight:
		return p, nil
	}
	return PositionCenter, fmt.Errorf("Unknown position '%v'", s)
}

// Anchor returns the top-left corner of a width x height rectangle placed inside outer at pos.
// margin is the gap between the rectangle and the edges of outer, and is ignored for center.
func Anchor(pos Position, outer image.Rectangle, width, height, margin int) image.Point {
	switch pos {
	case PositionTopLeft:
		return image.Pt(outer.Min.X+margin, outer.Min.Y+margin)
	case PositionTopRight:
		return image.Pt(outer.Max.X-width-margin, outer.Min.Y+margin)
	case PositionBottomLeft:
		return image.Pt(outer.Min.X+margin, outer.Max.Y-height-margin)
	case PositionBottomRight:
		return image.Pt(outer.Max.X-width-margin, outer.Max.Y-height-margin)
	}
	return image.Pt(outer.Min.X+(outer.Dx()-width)/2, outer.Min.Y+(outer.Dy()-height)/2)
}
