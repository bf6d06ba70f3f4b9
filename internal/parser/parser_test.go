package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemerkle/pkg/types"
)

func parse(t *testing.T, lang Language, src string) []Node {
	t.Helper()
	p, err := New(lang)
	require.NoError(t, err)
	defer p.Close()

	nodes, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return nodes
}

func kinds(nodes []Node) []types.ChunkType {
	out := make([]types.ChunkType, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind
	}
	return out
}

func TestParseGo(t *testing.T) {
	src := `package main

import "fmt"

// Greet says hi
func Greet(name string) string {
	return fmt.Sprint("hi ", name)
}

type T struct{}

var x = 1
`
	nodes := parse(t, Go, src)
	require.Len(t, nodes, 6)
	assert.Equal(t, []types.ChunkType{
		types.ChunkOther, types.ChunkImport, types.ChunkOther,
		types.ChunkFunction, types.ChunkClass, types.ChunkVariable,
	}, kinds(nodes))

	fn := nodes[3]
	assert.Equal(t, "Greet", fn.Name)
	assert.Equal(t, 6, fn.StartLine)
	assert.Equal(t, 8, fn.EndLine)
	assert.Equal(t, "func Greet(name string) string {\n\treturn fmt.Sprint(\"hi \", name)\n}", src[fn.StartByte:fn.EndByte])

	assert.Equal(t, "T", nodes[4].Name)
	assert.Equal(t, "x", nodes[5].Name)
}

func TestParsePython(t *testing.T) {
	src := `import os
from sys import path

X = 1

@decorator
def f():
    return 1

class C:
    pass
`
	nodes := parse(t, Python, src)
	require.Len(t, nodes, 5)
	assert.Equal(t, []types.ChunkType{
		types.ChunkImport, types.ChunkImport, types.ChunkVariable,
		types.ChunkFunction, types.ChunkClass,
	}, kinds(nodes))

	assert.Equal(t, "X", nodes[2].Name)
	assert.Equal(t, "f", nodes[3].Name)
	assert.Equal(t, 6, nodes[3].StartLine, "decorator belongs to the function")
	assert.Equal(t, 8, nodes[3].EndLine)
	assert.Equal(t, "C", nodes[4].Name)
}

func TestParseJavaScriptExports(t *testing.T) {
	src := `import React from "react";
export function App() { return null; }
export const handler = () => 1;
const LIMIT = 10;
class Store {}
`
	nodes := parse(t, JavaScript, src)
	require.Len(t, nodes, 5)
	assert.Equal(t, []types.ChunkType{
		types.ChunkImport, types.ChunkFunction, types.ChunkFunction,
		types.ChunkVariable, types.ChunkClass,
	}, kinds(nodes))
	assert.Equal(t, "App", nodes[1].Name)
	assert.Equal(t, "handler", nodes[2].Name)
	assert.Equal(t, "LIMIT", nodes[3].Name)
	assert.Equal(t, "Store", nodes[4].Name)
}

func TestParseTypeScript(t *testing.T) {
	src := `import { a } from "./a";
interface Shape { area(): number }
type ID = string;
enum Color { Red }
`
	nodes := parse(t, TypeScript, src)
	assert.Equal(t, []types.ChunkType{
		types.ChunkImport, types.ChunkClass, types.ChunkClass, types.ChunkClass,
	}, kinds(nodes))
	assert.Equal(t, "Shape", nodes[1].Name)
}

func TestParseRustAndJava(t *testing.T) {
	rs := parse(t, Rust, "use std::io;\n\nfn main() {}\n\nstruct P { x: i32 }\n")
	assert.Equal(t, []types.ChunkType{types.ChunkImport, types.ChunkFunction, types.ChunkClass}, kinds(rs))
	assert.Equal(t, "main", rs[1].Name)

	java := parse(t, Java, "package a;\nimport java.util.List;\npublic class A {}\n")
	assert.Equal(t, []types.ChunkType{types.ChunkOther, types.ChunkImport, types.ChunkClass}, kinds(java))
	assert.Equal(t, "A", java[2].Name)
}

func TestParseByteOffsetsMultiByte(t *testing.T) {
	src := "// héllo wörld ✓\nfunc f() {}\n"
	nodes := parse(t, Go, "package p\n"+src)
	fn := nodes[len(nodes)-1]
	full := "package p\n" + src
	assert.Equal(t, "func f() {}", full[fn.StartByte:fn.EndByte])
	assert.Equal(t, 3, fn.StartLine)
}

func TestParseSyntaxError(t *testing.T) {
	p, err := New(Go)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Parse(context.Background(), []byte("package main\nfunc (\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseReusedParser(t *testing.T) {
	p, err := New(Go)
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 300; i++ {
		var b strings.Builder
		fmt.Fprintf(&b, "package p%d\n\nimport \"fmt\"\n", i)
		for j := 0; j <= i%9; j++ {
			fmt.Fprintf(&b, "\nfunc f%d_%d() {\n\tfmt.Println(%q, %d)\n}\n",
				i, j, strings.Repeat("é", j*7), i*j)
		}
		src := b.String()

		// cancelled right after each parse, as a per-call timeout would be
		ctx, cancel := context.WithCancel(context.Background())
		nodes, err := p.Parse(ctx, []byte(src))
		cancel()
		require.NoError(t, err, "file %d", i)
		require.Len(t, nodes, 2+i%9+1, "file %d", i)

		for _, n := range nodes {
			require.LessOrEqual(t, n.EndByte, len(src))
			text := src[n.StartByte:n.EndByte]
			assert.Equal(t, n.StartLine, strings.Count(src[:n.StartByte], "\n")+1, "file %d: %q", i, text)
			assert.Equal(t, n.EndLine, n.StartLine+strings.Count(text, "\n"), "file %d: %q", i, text)
		}
		assert.Contains(t, src[nodes[len(nodes)-1].StartByte:], fmt.Sprintf("f%d_%d", i, i%9))
	}
}

func TestParseCancelledContext(t *testing.T) {
	p, err := New(Go)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, []byte("package main\n"))
	assert.ErrorIs(t, err, context.Canceled)

	nodes, err := p.Parse(context.Background(), []byte("package main\n\nfunc main() {}\n"))
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(Language("cobol"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestLookup(t *testing.T) {
	tests := map[string]Language{
		"go": Go, "Python": Python, "js": JavaScript, "typescript": TypeScript,
		"tsx": TSX, "java": Java, "rust": Rust, "csharp": CSharp,
	}
	for name, want := range tests {
		got, ok := Lookup(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got)
	}
	_, ok := Lookup("markdown")
	assert.False(t, ok)

	for _, l := range Languages {
		assert.NotNil(t, l.grammar(), string(l))
	}
}
