package classifier

import (
	"strings"

	"github.com/dshills/codemerkle/internal/pathutil"
)

// LanguageUnknown is reported for files with no recognized extension
const LanguageUnknown = "unknown"

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "tsx",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".scala": "scala",
	".lua":   "lua",
	".sql":   "sql",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".md":    "markdown",
	".proto": "protobuf",
	".vue":   "vue",
}

var languageByName = map[string]string{
	"dockerfile":     "dockerfile",
	"makefile":       "makefile",
	"gnumakefile":    "makefile",
	"cmakelists.txt": "cmake",
	"jenkinsfile":    "groovy",
}

// LanguageDetector maps file paths to language names. Overrides take
// precedence over the built-in extension table.
type LanguageDetector struct {
	overrides map[string]string
}

// NewLanguageDetector creates a detector with optional extension overrides
// (keys are extensions with a leading dot)
func NewLanguageDetector(overrides map[string]string) *LanguageDetector {
	o := make(map[string]string, len(overrides))
	for ext, lang := range overrides {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o[ext] = lang
	}
	return &LanguageDetector{overrides: o}
}

// Detect returns the language for path, or LanguageUnknown
func (d *LanguageDetector) Detect(path string) string {
	ext := pathutil.Ext(path)
	if d != nil {
		if lang, ok := d.overrides[ext]; ok {
			return lang
		}
	}
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	if lang, ok := languageByName[strings.ToLower(pathutil.Base(path))]; ok {
		return lang
	}
	return LanguageUnknown
}
