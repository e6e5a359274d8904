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
	"errors"

	"github.com/ajroetker/hwcv/device"
	"github.com/ajroetker/hwcv/device/mempool"
)

// ErrInvalidParameter reports a malformed argument caught by the cheap
// argument checks or by the validation layer.
var ErrInvalidParameter = errors.New("cv: invalid parameter")

// Status is the outcome of a library call.
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidParameter
	StatusDeviceError
	StatusPoolAlreadyActive
	StatusPoolNotActive
	// StatusPoolExhausted is soft: the caller may retry with the pool
	// inactive or with direct allocation.
	StatusPoolExhausted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidParameter:
		return "invalid-parameter"
	case StatusDeviceError:
		return "device-error"
	case StatusPoolAlreadyActive:
		return "pool-already-active"
	case StatusPoolNotActive:
		return "pool-not-active"
	case StatusPoolExhausted:
		return "pool-exhausted"
	default:
		return "unknown"
	}
}

// StatusOf classifies an error returned by this package, a stream
// Synchronize, or the memory pool.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, device.ErrInvalidValue),
		errors.Is(err, mempool.ErrInvalidCapacity),
		errors.Is(err, mempool.ErrInvalidSize):
		return StatusInvalidParameter
	case errors.Is(err, mempool.ErrAlreadyActive):
		return StatusPoolAlreadyActive
	case errors.Is(err, mempool.ErrNotActive):
		return StatusPoolNotActive
	case errors.Is(err, mempool.ErrPoolExhausted):
		return StatusPoolExhausted
	default:
		return StatusDeviceError
	}
}
