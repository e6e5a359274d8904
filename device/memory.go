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

package device

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// Element is the constraint for values stored in device memory. It excludes
// pointer-carrying types because device memory is not scanned by the GC.
type Element interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// allocation is one region returned by Malloc.
type allocation struct {
	mem    []byte // aligned, exactly the requested size
	raw    []byte // backing region as returned by the arena
	mapped bool
	freed  atomic.Bool
}

// Ptr is a device address: an allocation plus a byte offset into it.
// The zero value is the nil pointer.
type Ptr struct {
	a   *allocation
	off int
}

// IsNil reports whether p is the nil device pointer.
func (p Ptr) IsNil() bool {
	return p.a == nil
}

// Add returns p advanced by n bytes.
func (p Ptr) Add(n int) Ptr {
	return Ptr{a: p.a, off: p.off + n}
}

// Addr returns the numeric address of p, 0 for nil.
func (p Ptr) Addr() uintptr {
	if p.a == nil || len(p.a.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(p.a.mem))) + uintptr(p.off)
}

// Len returns the number of bytes between p and the end of its allocation.
func (p Ptr) Len() int {
	if p.a == nil {
		return 0
	}
	return len(p.a.mem) - p.off
}

// Base returns the start of the allocation p points into.
func (p Ptr) Base() Ptr {
	return Ptr{a: p.a}
}

// Offset returns the byte offset of p within its allocation.
func (p Ptr) Offset() int {
	return p.off
}

func (p Ptr) String() string {
	if p.a == nil {
		return "devptr(nil)"
	}
	return fmt.Sprintf("devptr(%#x)", p.Addr())
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// Malloc allocates size bytes of device memory aligned to Alignment.
// The memory is zeroed.
func (d *Device) Malloc(size int) (Ptr, error) {
	if size <= 0 {
		return Ptr{}, fmt.Errorf("%w: malloc of %d bytes", ErrInvalidValue, size)
	}
	charged := int64(alignUp(size, Alignment))

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Ptr{}, ErrDeviceClosed
	}
	if d.limit > 0 && d.inUse+charged > d.limit {
		inUse := d.inUse
		d.mu.Unlock()
		return Ptr{}, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrOutOfMemory, size, inUse, d.limit)
	}
	d.inUse += charged
	d.allocs++
	d.mu.Unlock()

	raw, mapped, err := mapMemory(size + Alignment)
	if err != nil {
		d.uncharge(charged)
		return Ptr{}, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	off := 0
	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % Alignment); rem != 0 {
		off = Alignment - rem
	}
	a := &allocation{mem: raw[off : off+size : off+size], raw: raw, mapped: mapped}
	return Ptr{a: a}, nil
}

// MallocPitch allocates height rows of at least widthBytes each. The
// returned pitch is the distance in bytes between consecutive rows.
func (d *Device) MallocPitch(widthBytes, height int) (Ptr, int, error) {
	if widthBytes <= 0 || height <= 0 {
		return Ptr{}, 0, fmt.Errorf("%w: pitched malloc of %dx%d", ErrInvalidValue, widthBytes, height)
	}
	pitch := alignUp(widthBytes, PitchAlignment)
	p, err := d.Malloc(pitch * height)
	if err != nil {
		return Ptr{}, 0, err
	}
	return p, pitch, nil
}

// Free releases memory returned by Malloc or MallocPitch. Freeing nil is a
// no-op. The caller must ensure no queued work still uses p.
func (d *Device) Free(p Ptr) error {
	if p.a == nil {
		return nil
	}
	if p.off != 0 {
		return fmt.Errorf("%w: free of interior pointer %s", ErrInvalidValue, p)
	}
	if !p.a.freed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: double free of %s", ErrInvalidValue, p)
	}
	charged := int64(alignUp(len(p.a.mem), Alignment))
	err := unmapMemory(p.a.raw, p.a.mapped)
	p.a.mem, p.a.raw = nil, nil
	d.uncharge(charged)
	if err != nil {
		d.log.WithError(err).WithField("ptr", p.String()).Warn("unmapping device memory failed")
	}
	return nil
}

func (d *Device) uncharge(n int64) {
	d.mu.Lock()
	d.inUse -= n
	d.allocs--
	d.mu.Unlock()
}

// MemoryInUse returns the bytes currently allocated and the number of live
// allocations.
func (d *Device) MemoryInUse() (bytes int64, allocations int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inUse, d.allocs
}

// View returns the n elements of type T starting at p as a slice aliasing
// device memory. It panics if the range leaves the allocation, if p is
// misaligned for T, or if the allocation was freed; inside a kernel such a
// panic faults the stream.
func View[T Element](p Ptr, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	switch {
	case p.a == nil:
		panic("device: nil pointer dereference")
	case p.a.freed.Load():
		panic(fmt.Sprintf("device: use of freed memory %s", p))
	case n < 0 || p.off < 0 || p.off+n*size > len(p.a.mem):
		panic(fmt.Sprintf("device: illegal address: %d bytes at offset %d of a %d byte allocation",
			n*size, p.off, len(p.a.mem)))
	case p.Addr()%unsafe.Alignof(zero) != 0:
		panic(fmt.Sprintf("device: misaligned address %s for %d byte elements", p, size))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&p.a.mem[p.off])), n)
}

// Extent returns the number of elements a strided 2D region of height rows,
// rowLen elements per row and stride elements between rows spans.
func Extent(height, rowLen, stride int) int {
	if height <= 0 || rowLen <= 0 {
		return 0
	}
	return (height-1)*stride + rowLen
}

func checkCopy(p Ptr, bytes int) error {
	switch {
	case p.a == nil:
		return fmt.Errorf("%w: copy through nil pointer", ErrInvalidValue)
	case p.a.freed.Load():
		return fmt.Errorf("%w: copy through freed pointer %s", ErrInvalidValue, p)
	case bytes > p.Len():
		return fmt.Errorf("%w: copy of %d bytes overruns %s (%d bytes left)", ErrInvalidValue, bytes, p, p.Len())
	}
	return nil
}

// CopyToDevice copies src into device memory at dst. Copies are synchronous
// with respect to the host and unordered with respect to streams; synchronize
// streams that touch dst first.
func CopyToDevice[T Element](dst Ptr, src []T) error {
	var zero T
	if err := checkCopy(dst, len(src)*int(unsafe.Sizeof(zero))); err != nil {
		return err
	}
	copy(View[T](dst, len(src)), src)
	return nil
}

// CopyFromDevice copies len(dst) elements at src into dst.
func CopyFromDevice[T Element](dst []T, src Ptr) error {
	var zero T
	if err := checkCopy(src, len(dst)*int(unsafe.Sizeof(zero))); err != nil {
		return err
	}
	copy(dst, View[T](src, len(dst)))
	return nil
}

// CopyToDevice2D copies height rows of width elements from a host buffer with
// srcStride elements per row to device memory with dstStride elements per
// row. Rows are copied in parallel on the compute units of d.
func CopyToDevice2D[T Element](d *Device, dst Ptr, dstStride int, src []T, srcStride, width, height int) error {
	return copyRows(d, dst, dstStride, src, srcStride, width, height, true)
}

// CopyFromDevice2D is the device-to-host counterpart of CopyToDevice2D.
func CopyFromDevice2D[T Element](d *Device, dst []T, dstStride int, src Ptr, srcStride, width, height int) error {
	return copyRows(d, src, srcStride, dst, dstStride, width, height, false)
}

func copyRows[T Element](d *Device, dev Ptr, devStride int, host []T, hostStride, width, height int, toDevice bool) error {
	if width <= 0 || height <= 0 || devStride < width || hostStride < width {
		return fmt.Errorf("%w: 2D copy of %dx%d with strides %d/%d", ErrInvalidValue, width, height, devStride, hostStride)
	}
	var zero T
	n := Extent(height, width, devStride)
	if err := checkCopy(dev, n*int(unsafe.Sizeof(zero))); err != nil {
		return err
	}
	if Extent(height, width, hostStride) > len(host) {
		return fmt.Errorf("%w: host buffer of %d elements too small for %dx%d", ErrInvalidValue, len(host), width, height)
	}
	view := View[T](dev, n)
	d.units.ParallelFor(height, func(start, end int) {
		for y := start; y < end; y++ {
			drow := view[y*devStride : y*devStride+width]
			hrow := host[y*hostStride : y*hostStride+width]
			if toDevice {
				copy(drow, hrow)
			} else {
				copy(hrow, drow)
			}
		}
	})
	d.log.WithFields(logrus.Fields{"width": width, "height": height, "to_device": toDevice}).Trace("2D copy")
	return nil
}
