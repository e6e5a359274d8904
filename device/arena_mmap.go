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

//go:build linux || darwin || freebsd || netbsd || openbsd

package device

import "golang.org/x/sys/unix"

// mmapThreshold is the smallest request served by an anonymous mapping.
// Smaller requests come from the Go heap so that scratch buffers do not each
// cost a page.
const mmapThreshold = 64 * 1024

func mapMemory(size int) ([]byte, bool, error) {
	if size < mmapThreshold {
		return make([]byte, size), false, nil
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func unmapMemory(b []byte, mapped bool) error {
	if !mapped || b == nil {
		return nil
	}
	return unix.Munmap(b)
}
