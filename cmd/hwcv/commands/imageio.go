// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ajroetker/hwcv/cv"
)

var encoders = map[string]func(io.Writer, image.Image) error{
	".png":  png.Encode,
	".bmp":  bmp.Encode,
	".tif":  encodeTIFF,
	".tiff": encodeTIFF,
}

func encodeTIFF(w io.Writer, m image.Image) error {
	return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
}

// readImage decodes a PNG, BMP or TIFF file into an 8-bit image: one
// channel for grayscale files, four for files with transparency and three
// otherwise.
func readImage(path string) (*cv.Image[uint8], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return fromImage(m), nil
}

func fromImage(m image.Image) *cv.Image[uint8] {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := m.(*image.Gray); ok {
		img := cv.NewImage[uint8](w, h, 1)
		for y := range h {
			copy(img.Row(y), g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):][:w])
		}
		return img
	}

	channels := 3
	if o, ok := m.(interface{ Opaque() bool }); ok && !o.Opaque() {
		channels = 4
	}
	img := cv.NewImage[uint8](w, h, channels)
	for y := range h {
		row := img.Row(y)
		for x := range w {
			c := color.NRGBAModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			px := row[x*channels:]
			px[0], px[1], px[2] = c.R, c.G, c.B
			if channels == 4 {
				px[3] = c.A
			}
		}
	}
	return img
}

func toImage(img *cv.Image[uint8]) image.Image {
	w, h := img.Width(), img.Height()
	r := image.Rect(0, 0, w, h)
	switch img.Channels() {
	case 1:
		g := image.NewGray(r)
		for y := range h {
			copy(g.Pix[y*g.Stride:], img.Row(y))
		}
		return g
	case 4:
		n := image.NewNRGBA(r)
		for y := range h {
			copy(n.Pix[y*n.Stride:], img.Row(y))
		}
		return n
	default:
		rgba := image.NewRGBA(r)
		for y := range h {
			row, dst := img.Row(y), rgba.Pix[y*rgba.Stride:]
			for x := range w {
				copy(dst[x*4:x*4+3], row[x*3:x*3+3])
				dst[x*4+3] = 0xff
			}
		}
		return rgba
	}
}

func writeImage(path string, m image.Image) (err error) {
	enc, ok := encoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("%s: unsupported output format", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return enc(f, m)
}

// outputPath returns where the result for input is written: dir, or the
// input's directory when dir is empty, with suffix before the extension.
func outputPath(input, dir, suffix string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+suffix+ext)
}
