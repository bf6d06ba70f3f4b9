package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is a language with a structural grammar
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Java       Language = "java"
	Rust       Language = "rust"
	CSharp     Language = "csharp"
)

// Languages lists every supported grammar
var Languages = []Language{Go, Python, JavaScript, TypeScript, TSX, Java, Rust, CSharp}

// Lookup returns the grammar language for a detected language name
func Lookup(name string) (Language, bool) {
	switch strings.ToLower(name) {
	case "go", "golang":
		return Go, true
	case "python", "py":
		return Python, true
	case "javascript", "js", "jsx":
		return JavaScript, true
	case "typescript", "ts":
		return TypeScript, true
	case "tsx":
		return TSX, true
	case "java":
		return Java, true
	case "rust", "rs":
		return Rust, true
	case "csharp", "c#", "cs":
		return CSharp, true
	}
	return "", false
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case Go:
		return golang.GetLanguage()
	case Python:
		return python.GetLanguage()
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	case Java:
		return java.GetLanguage()
	case Rust:
		return rust.GetLanguage()
	case CSharp:
		return csharp.GetLanguage()
	}
	return nil
}
