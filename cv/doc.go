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

// Package cv provides image-processing kernels that run on a hwcv device.
//
// Every operation has the same shape: it takes an execution Context, the
// stream to run on, an input region described by height, width, stride and a
// device pointer, and an output stride and pointer:
//
//	Transpose[float32, cv.C3](ctx, stream, inHeight, inWidth, inStride, in, outStride, out)
//
// Strides are measured in elements, not bytes: width*channels for densely
// packed buffers, pitch/sizeof(T) for buffers from device.MallocPitch. Both
// layouts give identical results.
//
// Operations are asynchronous. They validate their arguments, enqueue their
// phases on the stream and return; outputs may be read after
// stream.Synchronize returns nil. A non-nil error from either call means the
// output is undefined. StatusOf maps any error to a Status code.
//
// # Scratch memory
//
// Operations that need temporary device buffers draw them from the Context's
// memory pool while it is active and allocate them directly otherwise.
// Scratch buffers are released in stream order after the operation's last
// phase:
//
//	ctx := cv.NewContext(dev)
//	if err := ctx.ActivatePool(1 << 20); err != nil {
//	    return err
//	}
//	defer ctx.ShutdownPool()
//
//	for _, frame := range frames {
//	    cv.EqualizeHist[uint8, cv.C1](ctx, stream, h, w, stride, frame, stride, out)
//	}
//	stream.Synchronize()
//
// # Preconditions
//
// Only cheap checks are made on the hot path: nil stream or pointers and
// non-positive sizes are reported as StatusInvalidParameter. A stride smaller
// than width*channels, or a region larger than its allocation, is undefined
// behavior unless validation is enabled with WithValidation, the
// HWCV_VALIDATE environment variable or the hwcvdebug build tag.
package cv
