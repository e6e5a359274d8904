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

// Command hwcv runs hwcv image operations on image files and reports on the
// simulated device.
//
// Usage:
//
//	hwcv info
//	hwcv equalize -o out/ frame1.png frame2.bmp
//	hwcv transpose --pool 0 scan.tiff
package main

import (
	"os"

	"github.com/ajroetker/hwcv/cmd/hwcv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
