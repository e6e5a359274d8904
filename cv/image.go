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

	"github.com/ajroetker/hwcv/device"
)

// Image is a host-side interleaved image with Channels values per pixel and
// Stride elements between row starts.
type Image[T Pixel] struct {
	pix      []T
	width    int
	height   int
	channels int
	stride   int
}

// NewImage returns a zeroed, densely packed image.
func NewImage[T Pixel](width, height, channels int) *Image[T] {
	return NewImageStride[T](width, height, channels, width*channels)
}

// NewImageStride returns a zeroed image whose rows are stride elements
// apart. A stride below width*channels is raised to it.
func NewImageStride[T Pixel](width, height, channels, stride int) *Image[T] {
	if width <= 0 || height <= 0 || channels <= 0 {
		return &Image[T]{}
	}
	stride = max(stride, width*channels)
	return &Image[T]{
		pix:      make([]T, device.Extent(height, width*channels, stride)),
		width:    width,
		height:   height,
		channels: channels,
		stride:   stride,
	}
}

// Width returns the image width in pixels.
func (img *Image[T]) Width() int { return img.width }

// Height returns the image height in pixels.
func (img *Image[T]) Height() int { return img.height }

// Channels returns the number of interleaved values per pixel.
func (img *Image[T]) Channels() int { return img.channels }

// Stride returns the number of elements between row starts.
func (img *Image[T]) Stride() int { return img.stride }

// Pix returns the backing slice.
func (img *Image[T]) Pix() []T { return img.pix }

// Row returns the width*channels values of row y, excluding padding.
func (img *Image[T]) Row(y int) []T {
	if y < 0 || y >= img.height {
		return nil
	}
	start := y * img.stride
	return img.pix[start : start+img.width*img.channels]
}

// At returns channel c of pixel (x, y), or zero outside the image.
func (img *Image[T]) At(x, y, c int) T {
	if !img.inside(x, y, c) {
		var zero T
		return zero
	}
	return img.pix[y*img.stride+x*img.channels+c]
}

// Set sets channel c of pixel (x, y). Coordinates outside the image are
// ignored.
func (img *Image[T]) Set(x, y, c int, v T) {
	if img.inside(x, y, c) {
		img.pix[y*img.stride+x*img.channels+c] = v
	}
}

func (img *Image[T]) inside(x, y, c int) bool {
	return x >= 0 && x < img.width && y >= 0 && y < img.height && c >= 0 && c < img.channels
}

// Fill sets every value of the image, padding included.
func (img *Image[T]) Fill(v T) {
	for i := range img.pix {
		img.pix[i] = v
	}
}

// Clone returns a deep copy with the same stride.
func (img *Image[T]) Clone() *Image[T] {
	clone := *img
	clone.pix = append([]T(nil), img.pix...)
	return &clone
}

// SameShape reports whether a and b have the same width, height and
// channel count.
func SameShape[T, U Pixel](a *Image[T], b *Image[U]) bool {
	return a.width == b.width && a.height == b.height && a.channels == b.channels
}

// DeviceImage is an image in device memory.
type DeviceImage[T Pixel] struct {
	Desc
	Channels int

	dev *device.Device
}

// NewDeviceImage allocates an uninitialized device image. Pitched images
// have rows padded to device.PitchAlignment; dense images have a stride of
// width*channels.
func NewDeviceImage[T Pixel](dev *device.Device, width, height, channels int, pitched bool) (*DeviceImage[T], error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: device image %dx%dx%d", ErrInvalidParameter, width, height, channels)
	}
	elem := sizeOf[T]()
	rowBytes := width * channels * elem

	var (
		p      device.Ptr
		stride = width * channels
		err    error
	)
	if pitched {
		var pitch int
		p, pitch, err = dev.MallocPitch(rowBytes, height)
		stride = pitch / elem
	} else {
		p, err = dev.Malloc(rowBytes * height)
	}
	if err != nil {
		return nil, err
	}
	return &DeviceImage[T]{
		Desc:     Desc{Height: height, Width: width, Stride: stride, Data: p},
		Channels: channels,
		dev:      dev,
	}, nil
}

// Upload copies img into a new device image.
func Upload[T Pixel](dev *device.Device, img *Image[T], pitched bool) (*DeviceImage[T], error) {
	d, err := NewDeviceImage[T](dev, img.width, img.height, img.channels, pitched)
	if err != nil {
		return nil, err
	}
	if err := device.CopyToDevice2D(dev, d.Data, d.Stride, img.pix, img.stride, img.width*img.channels, img.height); err != nil {
		d.Free()
		return nil, err
	}
	return d, nil
}

// Download copies the device image into a new dense host image. Streams
// writing the image must be synchronized first.
func (d *DeviceImage[T]) Download() (*Image[T], error) {
	img := NewImage[T](d.Width, d.Height, d.Channels)
	if err := d.DownloadTo(img); err != nil {
		return nil, err
	}
	return img, nil
}

// DownloadTo copies the device image into img, which must have the same
// shape.
func (d *DeviceImage[T]) DownloadTo(img *Image[T]) error {
	if img.width != d.Width || img.height != d.Height || img.channels != d.Channels {
		return fmt.Errorf("%w: download of %dx%dx%d into %dx%dx%d", ErrInvalidParameter,
			d.Width, d.Height, d.Channels, img.width, img.height, img.channels)
	}
	return device.CopyFromDevice2D(d.dev, img.pix, img.stride, d.Data, d.Stride, d.Width*d.Channels, d.Height)
}

// Free releases the device memory of the image.
func (d *DeviceImage[T]) Free() error {
	return d.dev.Free(d.Data)
}
