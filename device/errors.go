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

import "errors"

// Errors reported by the device. Every error returned by this package wraps
// one of them.
var (
	ErrOutOfMemory          = errors.New("device: out of memory")
	ErrInvalidValue         = errors.New("device: invalid value")
	ErrInvalidConfiguration = errors.New("device: invalid launch configuration")
	ErrLaunchFailure        = errors.New("device: kernel launch failure")
	ErrStreamClosed         = errors.New("device: stream closed")
	ErrDeviceClosed         = errors.New("device: device closed")
)
