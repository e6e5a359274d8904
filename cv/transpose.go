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

package cv

import (
	"github.com/ajroetker/hwcv/device"
)

const (
	tileDim   = 32 // transpose tile edge in pixels
	blockRows = 8  // thread rows per transpose block
)

// Transpose writes the transpose of the inHeight x inWidth image at in to
// out, so that out pixel (y, x) equals in pixel (x, y) for every channel.
// The output is inWidth rows of inHeight pixels. Strides are in elements of
// T. in and out must not overlap.
//
// Tiles of the image are staged through block shared memory so that both
// the reads and the writes walk rows.
func Transpose[T Pixel, C Channels](ctx *Context, s *device.Stream, inHeight, inWidth, inStride int, in device.Ptr, outStride int, out device.Ptr) error {
	const op = "transpose"
	nc := channelsOf[C]()
	src := region{name: "input", height: inHeight, rowLen: inWidth * nc, stride: inStride, ptr: in}
	dst := region{name: "output", height: inWidth, rowLen: inHeight * nc, stride: outStride, ptr: out}
	if err := ctx.check(op, s, sizeOf[T](), false, src, dst); err != nil {
		return err
	}

	tile := device.Dim3{X: tileDim, Y: tileDim, Z: 1}
	cfg := device.LaunchConfig{
		Grid:        device.GridFor(inWidth, inHeight, tile),
		Block:       device.Dim3{X: tileDim, Y: blockRows, Z: 1},
		SharedBytes: tileDim * tileDim * nc * sizeOf[T](),
	}
	nIn, nOut := src.extent(), dst.extent()
	return ctx.launch(s, op, cfg, func(b *device.Block) {
		transposeTile[T](b, nc, device.View[T](in, nIn), inStride, device.View[T](out, nOut), outStride, inWidth, inHeight)
	})
}

// transposeTile moves one tileDim x tileDim tile. Thread (tx, ty) loads rows
// ty, ty+blockRows, ... of the tile, then stores the matching columns.
func transposeTile[T Pixel](b *device.Block, nc int, src []T, inStride int, dst []T, outStride int, width, height int) {
	tile := device.Shared[T](b, tileDim*tileDim*nc)
	x0, y0 := b.Idx.X*tileDim, b.Idx.Y*tileDim
	w, h := min(tileDim, width-x0), min(tileDim, height-y0)
	rowPitch := tileDim * nc

	for ty := range blockRows {
		for j := ty; j < h; j += blockRows {
			row := src[(y0+j)*inStride+x0*nc:]
			for tx := range min(b.Dim.X, w) {
				copy(tile[j*rowPitch+tx*nc:j*rowPitch+(tx+1)*nc], row[tx*nc:(tx+1)*nc])
			}
		}
	}

	for ty := range blockRows {
		for j := ty; j < w; j += blockRows {
			row := dst[(x0+j)*outStride+y0*nc:]
			for tx := range min(b.Dim.X, h) {
				copy(row[tx*nc:(tx+1)*nc], tile[tx*rowPitch+j*nc:tx*rowPitch+(j+1)*nc])
			}
		}
	}
}
