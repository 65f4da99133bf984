package parts

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/roach88/cellsim/internal/geom"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/value"
)

var (
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	gray  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	red   = color.RGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	dark  = color.RGBA{R: 0x30, G: 0x30, B: 0x20, A: 0xff}
	brown = color.RGBA{R: 0x8b, G: 0x5a, B: 0x2b, A: 0xff}
)

func fill(img *image.RGBA, c color.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func fillDraw(c color.RGBA) part.DrawFunc {
	return func(_ part.Cell, img *image.RGBA) error {
		fill(img, c)
		return nil
	}
}

func lifeDraw(c part.Cell, img *image.RGBA) error {
	if Bool(c, value.PropAlive, false) {
		fill(img, black)
	} else {
		fill(img, white)
	}
	return nil
}

func buttonDraw(c part.Cell, img *image.RGBA) error {
	if Bool(c, value.PropFiring, false) {
		fill(img, red)
	} else {
		fill(img, gray)
	}
	return nil
}

func lampDraw(c part.Cell, img *image.RGBA) error {
	if !Bool(c, value.PropLit, false) {
		fill(img, dark)
		return nil
	}
	v, err := c.Get(value.PropTint)
	if err != nil {
		return err
	}
	tint, err := value.AsColor(v)
	if err != nil {
		return err
	}
	fill(img, tint)
	return nil
}

// conveyorDraw paints a gray belt with a white stripe on the edge the belt
// runs toward.
func conveyorDraw(c part.Cell, img *image.RGBA) error {
	fill(img, gray)
	v, err := c.Get(value.PropDirection)
	if err != nil {
		return err
	}
	text, err := value.AsText(v)
	if err != nil {
		return err
	}
	b := img.Bounds()
	w, h := b.Dx()/4, b.Dy()/4
	var stripe image.Rectangle
	switch geom.ParseDirection(text) {
	case geom.Up:
		stripe = image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h)
	case geom.Down:
		stripe = image.Rect(b.Min.X, b.Max.Y-h, b.Max.X, b.Max.Y)
	case geom.Left:
		stripe = image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Max.Y)
	case geom.Right:
		stripe = image.Rect(b.Max.X-w, b.Min.Y, b.Max.X, b.Max.Y)
	default:
		return nil
	}
	draw.Draw(img, stripe, image.NewUniform(white), image.Point{}, draw.Src)
	return nil
}

func crateDraw(_ part.Cell, img *image.RGBA) error {
	fill(img, brown)
	return nil
}
