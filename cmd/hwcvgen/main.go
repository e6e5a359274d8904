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

// Command hwcvgen generates the typed entry points of package cv, one
// function per (operation, element type, channel count) instantiation, and
// registers them for run-time lookup.
//
// Usage:
//
//	hwcvgen -output zz_kernels.go
//	hwcvgen -ops transpose -output zz_transpose.go
//
// Or via go:generate:
//
//	//go:generate go run ../cmd/hwcvgen -output zz_kernels.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

var (
	outputFile = flag.String("output", "zz_kernels.go", "Output file")
	packageOut = flag.String("pkg", "cv", "Output package name")
	opFilter   = flag.String("ops", "all", "Comma-separated operations ("+strings.Join(OpKeys(), ",")+") or 'all'")
)

func main() {
	flag.Parse()

	gen := &Generator{
		Package: *packageOut,
		Output:  *outputFile,
		Ops:     parseList(*opFilter),
	}
	if err := gen.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully generated %s\n", *outputFile)
}

func parseList(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 1 && result[0] == "all" {
		return nil
	}
	return result
}
