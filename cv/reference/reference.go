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

// Package reference holds straightforward host implementations of the cv
// operations. Tests compare device results against them.
//
// Images are interleaved slices: pixel (x, y) channel c of an image with
// stride s is at index y*s + x*channels + c.
package reference

import "math"

// EqualizeHist equalizes each channel of src independently and writes the
// result to dst. The lookup table is computed in single precision as a
// vision library would:
//
//	lut[v] = saturate(round(float32(cdf[v] - cdf[vmin]) * (255 / float32(total - cdf[vmin]))))
func EqualizeHist(src []uint8, srcStride int, dst []uint8, dstStride int, width, height, channels int) {
	total := width * height
	for c := range channels {
		var hist [256]int
		for y := range height {
			row := src[y*srcStride:]
			for x := range width {
				hist[row[x*channels+c]]++
			}
		}

		var lut [256]uint8
		vmin := 0
		for hist[vmin] == 0 {
			vmin++
		}
		if hist[vmin] == total {
			for i := range lut {
				lut[i] = uint8(i)
			}
		} else {
			scale := 255 / float32(total-hist[vmin])
			sum := 0
			for v := vmin + 1; v < 256; v++ {
				sum += hist[v]
				lut[v] = saturate(float32(sum) * scale)
			}
		}

		for y := range height {
			in, out := src[y*srcStride:], dst[y*dstStride:]
			for x := range width {
				i := x*channels + c
				out[i] = lut[in[i]]
			}
		}
	}
}

func saturate(v float32) uint8 {
	r := math.RoundToEven(float64(v))
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	}
	return uint8(r)
}

// Transpose writes the transpose of the height x width image src to dst,
// which has width rows of height pixels.
func Transpose[T any](src []T, srcStride int, dst []T, dstStride int, width, height, channels int) {
	for y := range height {
		for x := range width {
			for c := range channels {
				dst[x*dstStride+y*channels+c] = src[y*srcStride+x*channels+c]
			}
		}
	}
}
