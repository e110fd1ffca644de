package ebitenrender

import (
	"bytes"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// fontCache hands out one face per font size over a shared source.
type fontCache struct {
	source *text.GoTextFaceSource
	faces  map[float32]*text.GoTextFace
}

func newFontCache(ttf []byte) (*fontCache, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("ebitenrender: failed to parse font: %w", err)
	}
	return &fontCache{source: source, faces: make(map[float32]*text.GoTextFace)}, nil
}

func (c *fontCache) face(size float32) *text.GoTextFace {
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := &text.GoTextFace{Source: c.source, Size: float64(size)}
	c.faces[size] = f
	return f
}

// lineHeight returns the distance between baselines for a face.
func lineHeight(f *text.GoTextFace) float64 {
	m := f.Metrics()
	return m.HAscent + m.HDescent + m.HLineGap
}
