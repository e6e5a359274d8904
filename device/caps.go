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
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Properties describes a device.
type Properties struct {
	Name               string
	Arch               string
	ComputeUnits       int
	MaxThreadsPerBlock int
	SharedMemPerBlock  int
	// TotalMemory is the allocation limit in bytes, 0 if unlimited.
	TotalMemory int64
	Alignment   int
	// Features lists the vector extensions of the host CPU backing the
	// compute units, e.g. "avx2" or "asimd".
	Features []string
}

func (p Properties) String() string {
	return fmt.Sprintf("%s (%s, %d compute units, features: %s)",
		p.Name, p.Arch, p.ComputeUnits, strings.Join(p.Features, ","))
}

func probe(units int, memoryLimit int64) Properties {
	return Properties{
		Name:               "hwcv-sim",
		Arch:               runtime.GOARCH,
		ComputeUnits:       units,
		MaxThreadsPerBlock: MaxThreadsPerBlock,
		SharedMemPerBlock:  SharedMemPerBlock,
		TotalMemory:        memoryLimit,
		Alignment:          Alignment,
		Features:           cpuFeatures(),
	}
}

// cpuFeatures reports the vector extensions found by x/sys/cpu. The flag
// structs exist on every GOARCH and are simply false off their architecture.
func cpuFeatures() []string {
	var f []string
	add := func(ok bool, name string) {
		if ok {
			f = append(f, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE2, "sse2")
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
		add(cpu.X86.HasAVX512BW, "avx512bw")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
		add(cpu.ARM64.HasATOMICS, "atomics")
	}
	if len(f) == 0 {
		f = append(f, "scalar")
	}
	return f
}
