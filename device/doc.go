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

// Package device implements the accelerator that hwcv kernels run on.
//
// The device owns its own memory space, addressed through Ptr values, and a
// fixed set of compute units that execute launched grids block by block.
// Work is submitted to ordered streams: a call that enqueues work returns
// immediately and the caller observes completion with Stream.Synchronize.
//
//	dev, err := device.New()
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	buf, pitch, err := dev.MallocPitch(640*3, 480)
//	s := dev.NewStream()
//	err = dev.Launch(s, device.LaunchConfig{
//	    Grid:  device.Dim3{X: 20, Y: 60, Z: 1},
//	    Block: device.Dim3{X: 32, Y: 8, Z: 1},
//	}, func(b *device.Block) { ... })
//	err = s.Synchronize()
//
// # Memory
//
// Malloc returns 256-byte aligned memory; MallocPitch pads each row to a
// 256-byte pitch. Device memory is backed by anonymous mappings on unix so
// that freed memory is returned to the operating system immediately.
// Accessing a Ptr after Free is undefined.
//
// # Faults
//
// A kernel that panics (for example by indexing outside a View) faults its
// stream. The stream skips the remaining ordinary work, still runs work
// enqueued with Stream.Always, and reports the fault from the next
// Synchronize.
//
// # Environment
//
// HWCV_COMPUTE_UNITS overrides the number of compute units.
package device
