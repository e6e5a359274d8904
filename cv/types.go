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
	"unsafe"

	"github.com/ajroetker/hwcv/device"
)

//go:generate go run ../cmd/hwcvgen -output zz_kernels.go

// Pixel is the constraint for pixel element types: exact-width unsigned
// integers and single-precision floats.
type Pixel interface {
	~uint8 | ~uint16 | ~float32
}

// Intensity is the constraint for 8-bit intensity images, the element types
// with exactly 256 levels.
type Intensity interface {
	~uint8
}

// Channels is the constraint for channel-count type parameters. Channel
// counts are types rather than values so that each (element, channels) pair
// compiles to its own code path.
type Channels interface {
	C1 | C3 | C4
	Count() int
}

// C1 selects single-channel images.
type C1 struct{}

// C3 selects three-channel interleaved images.
type C3 struct{}

// C4 selects four-channel interleaved images.
type C4 struct{}

func (C1) Count() int { return 1 }
func (C3) Count() int { return 3 }
func (C4) Count() int { return 4 }

// Desc describes a strided 2D region of device memory. Stride is the number
// of elements between the starts of consecutive rows.
type Desc struct {
	Height int
	Width  int
	Stride int
	Data   device.Ptr
}

func sizeOf[T Pixel]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func channelsOf[C Channels]() int {
	var c C
	return c.Count()
}
