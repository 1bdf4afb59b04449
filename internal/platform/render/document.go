package render

import "time"

// Sizes are in millimetres.
type Size struct {
	Width  float64
	Height float64
}

var (
	A4       = Size{Width: 210, Height: 297}
	CardSize = Size{Width: 85.6, Height: 53.98}
)

type RGB struct {
	R, G, B int
}

// Gradient is a linear fill from From to To along the block diagonal.
type Gradient struct {
	From RGB
	To   RGB
}

type ElementKind int

const (
	TextElement ElementKind = iota
	ImageElement
)

// Element is positioned relative to the top-left corner of its block.
type Element struct {
	Kind ElementKind
	X, Y float64
	W, H float64

	Text     string
	FontSize float64
	Bold     bool
	Align    string
	Color    RGB

	ImageURL string
	Circle   bool
}

// Block is a fixed-size box laid out left to right, top to bottom.
// KeepTogether blocks always start on a page where they fit whole.
type Block struct {
	Size         Size
	Background   *Gradient
	Border       *RGB
	KeepTogether bool
	Elements     []Element
}

type Document struct {
	Title     string
	Page      Size
	Margin    float64
	Gap       float64
	Blocks    []Block
	CreatedAt time.Time
}

func Text(x, y, w, h float64, text string, size float64, bold bool, color RGB) Element {
	return Element{Kind: TextElement, X: x, Y: y, W: w, H: h, Text: text, FontSize: size, Bold: bold, Align: "C", Color: color}
}

func Photo(x, y, diameter float64, url string) Element {
	return Element{Kind: ImageElement, X: x, Y: y, W: diameter, H: diameter, ImageURL: url, Circle: true}
}

// PxToMM converts CSS pixels (96 dpi) to millimetres.
func PxToMM(px float64) float64 {
	return px * 25.4 / 96
}
