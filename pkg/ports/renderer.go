package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts the image operations a sink performs on decoded frames.
type Renderer interface {
	// CreateCanvas creates a drawing canvas with the given background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for annotating frames.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawText(text string, x, y int, style TextStyle)
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

// ParseImageFormat maps "png"/"jpeg"/"jpg" to an ImageFormat. Unknown values map to PNG.
func ParseImageFormat(s string) ImageFormat {
	switch s {
	case "jpeg", "jpg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// Extension returns the file extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}
