package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// iconPNG renders the tray icon: a dashed selection rectangle on a
// transparent background. Drawn in code so no asset file is needed.
func iconPNG() []byte {
	const size = 16
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	frame := color.RGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0xFF}

	// dashed border, two pixels on, one off
	for i := 2; i < size-2; i++ {
		if i%3 == 0 {
			continue
		}
		img.SetRGBA(i, 2, frame)
		img.SetRGBA(i, size-3, frame)
		img.SetRGBA(2, i, frame)
		img.SetRGBA(size-3, i, frame)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
