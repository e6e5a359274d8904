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
	"math"
	"sync/atomic"

	"github.com/ajroetker/hwcv/device"
)

// histBins is the number of intensity levels of an 8-bit channel.
const histBins = 256

// pixelBlock is the block shape of the per-pixel equalization phases.
var pixelBlock = device.Dim3{X: 32, Y: 8, Z: 1}

// EqualizeHist equalizes the histogram of each channel of an 8-bit image
// independently. Output pixel values are lut[c][v] where lut maps the
// cumulative distribution of channel c onto 0..255:
//
//	lut[v] = round((cdf[v] - cdfMin) / (total - cdfMin) * 255)
//
// cdfMin is the count of the darkest level present and total is
// height*width. A channel holding a single level maps through the identity.
//
// The output has the input's dimensions; in and out may be the same region.
// Two scratch buffers are needed: C*1024 bytes of histogram counters and a
// C*256 byte lookup table. They come from the Context's pool while it is
// active and are released after the last phase.
func EqualizeHist[T Intensity, C Channels](ctx *Context, s *device.Stream, height, width, inStride int, in device.Ptr, outStride int, out device.Ptr) error {
	const op = "equalize-hist"
	nc := channelsOf[C]()
	src := region{name: "input", height: height, rowLen: width * nc, stride: inStride, ptr: in}
	dst := region{name: "output", height: height, rowLen: width * nc, stride: outStride, ptr: out}
	if err := ctx.check(op, s, 1, true, src, dst); err != nil {
		return err
	}

	histBytes, lutBytes := nc*histBins*4, nc*histBins
	hist, err := ctx.acquire(histBytes)
	if err != nil {
		return err
	}
	lut, err := ctx.acquire(lutBytes)
	if err != nil {
		ctx.release([]scratch{hist})
		return err
	}
	defer ctx.retire(s, hist, lut)

	if err := s.Memset(hist.ptr, 0, histBytes); err != nil {
		return err
	}

	nIn, nOut := src.extent(), dst.extent()
	grid := device.GridFor(width, height, pixelBlock)
	err = ctx.launch(s, op, device.LaunchConfig{Grid: grid, Block: pixelBlock, SharedBytes: histBytes}, func(b *device.Block) {
		local := device.Shared[uint32](b, nc*histBins)
		pix := device.View[T](in, nIn)
		b.Threads(func(x, y int) {
			if x >= width || y >= height {
				return
			}
			p := pix[y*inStride+x*nc : y*inStride+(x+1)*nc]
			for c, v := range p {
				local[c*histBins+int(v)]++
			}
		})
		global := device.View[uint32](hist.ptr, nc*histBins)
		for i, n := range local {
			if n != 0 {
				atomic.AddUint32(&global[i], n)
			}
		}
	})
	if err != nil {
		return err
	}

	total := uint32(height * width)
	err = ctx.launch(s, op, device.LaunchConfig{Grid: device.Dim3{X: 1, Y: 1, Z: 1}, Block: device.Dim3{X: nc, Y: 1, Z: 1}}, func(b *device.Block) {
		counts := device.View[uint32](hist.ptr, nc*histBins)
		table := device.View[uint8](lut.ptr, nc*histBins)
		b.Threads(func(c, _ int) {
			buildLUT(counts[c*histBins:(c+1)*histBins], total, table[c*histBins:(c+1)*histBins])
		})
	})
	if err != nil {
		return err
	}

	return ctx.launch(s, op, device.LaunchConfig{Grid: grid, Block: pixelBlock}, func(b *device.Block) {
		table := device.View[uint8](lut.ptr, nc*histBins)
		pix := device.View[T](in, nIn)
		res := device.View[T](out, nOut)
		b.Threads(func(x, y int) {
			if x >= width || y >= height {
				return
			}
			i, o := y*inStride+x*nc, y*outStride+x*nc
			for c := range nc {
				res[o+c] = T(table[c*histBins+int(pix[i+c])])
			}
		})
	})
}

// buildLUT turns one channel's histogram into its equalization table. The
// histogram is replaced by its cumulative sum.
func buildLUT(hist []uint32, total uint32, lut []uint8) {
	prefixSum(hist)

	var cdfMin uint32
	for _, v := range hist {
		if v != 0 {
			cdfMin = v
			break
		}
	}
	if total == cdfMin {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return
	}

	scale := 255 / float64(total-cdfMin)
	for i, cdf := range hist {
		if cdf < cdfMin {
			lut[i] = 0
			continue
		}
		lut[i] = uint8(min(math.Round(float64(cdf-cdfMin)*scale), 255))
	}
}

// prefixSum computes the inclusive prefix sum of data in place.
func prefixSum(data []uint32) {
	var carry uint32
	for i, v := range data {
		carry += v
		data[i] = carry
	}
}
