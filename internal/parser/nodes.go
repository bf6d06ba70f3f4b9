package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/codemerkle/pkg/types"
)

// nodeKinds maps top-level node types to chunk types per language. Types
// not listed are classified as other.
var nodeKinds = map[Language]map[string]types.ChunkType{
	Go: {
		"import_declaration":   types.ChunkImport,
		"function_declaration": types.ChunkFunction,
		"method_declaration":   types.ChunkFunction,
		"type_declaration":     types.ChunkClass,
		"var_declaration":      types.ChunkVariable,
		"const_declaration":    types.ChunkVariable,
	},
	Python: {
		"import_statement":        types.ChunkImport,
		"import_from_statement":   types.ChunkImport,
		"future_import_statement": types.ChunkImport,
		"function_definition":     types.ChunkFunction,
		"class_definition":        types.ChunkClass,
	},
	JavaScript: jsKinds(),
	TypeScript: tsKinds(),
	TSX:        tsKinds(),
	Java: {
		"import_declaration":          types.ChunkImport,
		"class_declaration":           types.ChunkClass,
		"interface_declaration":       types.ChunkClass,
		"enum_declaration":            types.ChunkClass,
		"record_declaration":          types.ChunkClass,
		"annotation_type_declaration": types.ChunkClass,
	},
	Rust: {
		"use_declaration":          types.ChunkImport,
		"extern_crate_declaration": types.ChunkImport,
		"function_item":            types.ChunkFunction,
		"function_signature_item":  types.ChunkFunction,
		"struct_item":              types.ChunkClass,
		"enum_item":                types.ChunkClass,
		"union_item":               types.ChunkClass,
		"trait_item":               types.ChunkClass,
		"impl_item":                types.ChunkClass,
		"type_item":                types.ChunkClass,
		"const_item":               types.ChunkVariable,
		"static_item":              types.ChunkVariable,
		"let_declaration":          types.ChunkVariable,
	},
	CSharp: {
		"using_directive":                   types.ChunkImport,
		"namespace_declaration":             types.ChunkClass,
		"file_scoped_namespace_declaration": types.ChunkClass,
		"class_declaration":                 types.ChunkClass,
		"struct_declaration":                types.ChunkClass,
		"interface_declaration":             types.ChunkClass,
		"enum_declaration":                  types.ChunkClass,
		"record_declaration":                types.ChunkClass,
		"delegate_declaration":              types.ChunkClass,
		"global_statement":                  types.ChunkOther,
	},
}

func jsKinds() map[string]types.ChunkType {
	return map[string]types.ChunkType{
		"import_statement":               types.ChunkImport,
		"function_declaration":           types.ChunkFunction,
		"generator_function_declaration": types.ChunkFunction,
		"class_declaration":              types.ChunkClass,
		"lexical_declaration":            types.ChunkVariable,
		"variable_declaration":           types.ChunkVariable,
	}
}

func tsKinds() map[string]types.ChunkType {
	k := jsKinds()
	k["function_signature"] = types.ChunkFunction
	k["abstract_class_declaration"] = types.ChunkClass
	k["interface_declaration"] = types.ChunkClass
	k["type_alias_declaration"] = types.ChunkClass
	k["enum_declaration"] = types.ChunkClass
	k["ambient_declaration"] = types.ChunkOther
	return k
}

// wrapperFields names the field holding the real declaration for nodes that
// only decorate or export another declaration
var wrapperFields = map[string]string{
	"decorated_definition": "definition",  // python
	"export_statement":     "declaration", // javascript, typescript
}

// classify returns the chunk type and name for a top-level node
func classify(lang Language, n *sitter.Node, src []byte) (types.ChunkType, string) {
	target := n
	if field, ok := wrapperFields[n.Type()]; ok {
		if inner := n.ChildByFieldName(field); inner != nil {
			target = inner
		}
	}

	kind, ok := nodeKinds[lang][target.Type()]
	if !ok {
		if lang == Python && target.Type() == "expression_statement" && hasAssignment(target) {
			return types.ChunkVariable, nodeName(target.NamedChild(0), src)
		}
		return types.ChunkOther, ""
	}

	if kind == types.ChunkVariable && isFunctionBinding(target) {
		kind = types.ChunkFunction
	}
	return kind, nodeName(target, src)
}

// hasAssignment reports whether a python expression statement assigns
func hasAssignment(n *sitter.Node) bool {
	first := n.NamedChild(0)
	if first == nil {
		return false
	}
	switch first.Type() {
	case "assignment", "augmented_assignment":
		return true
	}
	return false
}

// isFunctionBinding reports whether a JS/TS declaration binds a function
// expression, as in `const f = () => {}`
func isFunctionBinding(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		if v := decl.ChildByFieldName("value"); v != nil {
			switch v.Type() {
			case "arrow_function", "function", "function_expression", "generator_function":
				return true
			}
		}
	}
	return false
}

// nodeName extracts a declaration name, looking one level into wrapper
// children such as Go's type_spec and JS variable_declarator
func nodeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	for _, field := range []string{"name", "left"} {
		if c := n.ChildByFieldName(field); c != nil {
			return c.Content(src)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "type_spec", "var_spec", "const_spec", "variable_declarator", "type_alias":
			if name := c.ChildByFieldName("name"); name != nil {
				return name.Content(src)
			}
		}
	}
	return ""
}
