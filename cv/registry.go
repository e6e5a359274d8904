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
	"fmt"
	"slices"
	"strings"

	"github.com/ajroetker/hwcv/device"
)

// ElemType names a pixel element type at run time.
type ElemType int

const (
	ElemU8 ElemType = iota
	ElemU16
	ElemF32
)

var elemNames = [...]string{ElemU8: "u8", ElemU16: "u16", ElemF32: "f32"}

func (e ElemType) String() string {
	if e < 0 || int(e) >= len(elemNames) {
		return fmt.Sprintf("ElemType(%d)", int(e))
	}
	return elemNames[e]
}

// Size returns the element size in bytes.
func (e ElemType) Size() int {
	switch e {
	case ElemU8:
		return 1
	case ElemU16:
		return 2
	default:
		return 4
	}
}

// ParseElemType parses "u8", "u16" or "f32".
func ParseElemType(s string) (ElemType, error) {
	if i := slices.Index(elemNames[:], strings.ToLower(s)); i >= 0 {
		return ElemType(i), nil
	}
	return 0, fmt.Errorf("%w: element type %q", ErrInvalidParameter, s)
}

// KernelFunc is the signature shared by the typed entry points such as
// TransposeU8C3.
type KernelFunc func(ctx *Context, s *device.Stream, inHeight, inWidth, inStride int, in device.Ptr, outStride int, out device.Ptr) error

type kernelKey struct {
	op       string
	elem     ElemType
	channels int
}

var kernels = map[kernelKey]KernelFunc{}

func register(op string, elem ElemType, channels int, fn KernelFunc) {
	kernels[kernelKey{op, elem, channels}] = fn
}

// Lookup returns the typed entry point of op for the given element type and
// channel count, for callers that only know the image format at run time.
func Lookup(op string, elem ElemType, channels int) (KernelFunc, error) {
	fn, ok := kernels[kernelKey{op, elem, channels}]
	if !ok {
		return nil, fmt.Errorf("%w: no %s kernel for %v with %d channels", ErrInvalidParameter, op, elem, channels)
	}
	return fn, nil
}

// Kernels lists the registered entry points as "op/elem/cN", sorted.
func Kernels() []string {
	names := make([]string, 0, len(kernels))
	for k := range kernels {
		names = append(names, fmt.Sprintf("%s/%v/c%d", k.op, k.elem, k.channels))
	}
	slices.Sort(names)
	return names
}
