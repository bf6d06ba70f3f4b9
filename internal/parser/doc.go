// Package parser exposes tree-sitter grammars as a flat list of top-level
// declarations.
//
// Each supported Language has a node-type table that classifies top-level
// syntax nodes as import, class, function, variable or other. Spans are
// reported as byte offsets into the parsed source, so slicing stays exact
// under multi-byte text, together with 1-based inclusive line numbers.
//
// # Basic Usage
//
//	p, err := parser.New(parser.Python)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	nodes, err := p.Parse(ctx, src)
//	for _, n := range nodes {
//	    fmt.Printf("%s %s lines %d-%d\n", n.Kind, n.Name, n.StartLine, n.EndLine)
//	}
//
// Parse treats a tree containing ERROR or MISSING nodes as a failure so
// callers can retry on sanitized or truncated input.
//
// A Parser wraps a single tree-sitter parser and must not be shared between
// goroutines.
package parser
