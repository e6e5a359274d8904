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

package main

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"text/template"

	"golang.org/x/tools/imports"
)

// OpSpec describes one generic operation of package cv.
type OpSpec struct {
	Func     string   // generic function name, e.g. "Transpose"
	Key      string   // registry key, e.g. "transpose"
	Elems    []string // element type short names
	Channels []int
}

// Ops lists the operations entry points are generated for.
var Ops = []OpSpec{
	{Func: "Transpose", Key: "transpose", Elems: []string{"u8", "u16", "f32"}, Channels: []int{1, 3, 4}},
	{Func: "EqualizeHist", Key: "equalize-hist", Elems: []string{"u8"}, Channels: []int{1, 3, 4}},
}

type elemInfo struct {
	GoType string // "uint8"
	Const  string // "ElemU8"
	Suffix string // "U8"
}

var elems = map[string]elemInfo{
	"u8":  {"uint8", "ElemU8", "U8"},
	"u16": {"uint16", "ElemU16", "U16"},
	"f32": {"float32", "ElemF32", "F32"},
}

// OpKeys returns the registry keys of Ops.
func OpKeys() []string {
	keys := make([]string, len(Ops))
	for i, op := range Ops {
		keys[i] = op.Key
	}
	return keys
}

// Kernel is one generated entry point.
type Kernel struct {
	Name     string
	Func     string
	Key      string
	GoType   string
	Elem     string
	Channels int
}

// Generator renders the entry point file.
type Generator struct {
	Package string
	Output  string
	Ops     []string // registry keys to include; empty means all
}

// Kernels expands the selected operations into their instantiations.
func (g *Generator) Kernels() ([]Kernel, error) {
	for _, key := range g.Ops {
		if !slices.Contains(OpKeys(), key) {
			return nil, fmt.Errorf("unknown operation %q", key)
		}
	}
	var out []Kernel
	for _, op := range Ops {
		if len(g.Ops) > 0 && !slices.Contains(g.Ops, op.Key) {
			continue
		}
		for _, e := range op.Elems {
			info, ok := elems[e]
			if !ok {
				return nil, fmt.Errorf("operation %s: unknown element type %q", op.Key, e)
			}
			for _, c := range op.Channels {
				out = append(out, Kernel{
					Name:     fmt.Sprintf("%s%sC%d", op.Func, info.Suffix, c),
					Func:     op.Func,
					Key:      op.Key,
					GoType:   info.GoType,
					Elem:     info.Const,
					Channels: c,
				})
			}
		}
	}
	return out, nil
}

var fileTemplate = template.Must(template.New("kernels").Parse(`// Copyright 2025 go-highway Authors
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

// Code generated by hwcvgen. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/ajroetker/hwcv/device"
)
{{range .Kernels}}
// {{.Name}} is {{.Func}}[{{.GoType}}, C{{.Channels}}].
func {{.Name}}(ctx *Context, s *device.Stream, inHeight, inWidth, inStride int, in device.Ptr, outStride int, out device.Ptr) error {
	return {{.Func}}[{{.GoType}}, C{{.Channels}}](ctx, s, inHeight, inWidth, inStride, in, outStride, out)
}
{{end}}
func init() {
{{- range .Kernels}}
	register("{{.Key}}", {{.Elem}}, {{.Channels}}, {{.Name}})
{{- end}}
}
`))

// Render returns the formatted source of the entry point file.
func (g *Generator) Render() ([]byte, error) {
	kernels, err := g.Kernels()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = fileTemplate.Execute(&buf, struct {
		Package string
		Kernels []Kernel
	}{g.Package, kernels})
	if err != nil {
		return nil, err
	}
	src, err := imports.Process(g.Output, buf.Bytes(), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8, FormatOnly: true})
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	return src, nil
}

// Run renders the file and writes it to g.Output.
func (g *Generator) Run() error {
	src, err := g.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(g.Output, src, 0o644)
}
