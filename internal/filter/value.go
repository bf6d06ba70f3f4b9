package filter

import (
	"strings"

	"github.com/dshills/codemerkle/internal/pathutil"
)

// nonSourceNames are documentation and legal files, matched on the name
// without extension
var nonSourceNames = map[string]struct{}{
	"license": {}, "licence": {}, "copying": {}, "notice": {},
	"readme": {}, "changelog": {}, "changes": {}, "history": {},
	"authors": {}, "contributors": {}, "code_of_conduct": {},
}

// highValueNames are kept regardless of extension
var highValueNames = map[string]struct{}{
	"dockerfile": {}, "containerfile": {}, "makefile": {}, "gnumakefile": {},
	"cmakelists.txt": {}, "jenkinsfile": {}, "vagrantfile": {}, "rakefile": {},
	"gemfile": {}, "procfile": {}, "justfile": {}, "go.mod": {}, "go.work": {},
	".golangci.yml": {}, ".golangci.yaml": {}, ".editorconfig": {},
	"build.gradle": {}, "settings.gradle": {}, "build.gradle.kts": {},
}

// highValuePrefixes match linter and bundler configuration families
var highValuePrefixes = []string{
	"dockerfile.", ".eslintrc", ".prettierrc", ".babelrc", ".stylelintrc",
	"tsconfig", "jsconfig", "webpack.config.", "vite.config.", "rollup.config.",
	"babel.config.", "jest.config.", "vitest.config.", "tailwind.config.",
}

// sourceExtensions are accepted outright
var sourceExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".pyi": {}, ".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {},
	".ts": {}, ".tsx": {}, ".java": {}, ".kt": {}, ".kts": {}, ".scala": {},
	".rs": {}, ".c": {}, ".h": {}, ".cc": {}, ".cpp": {}, ".hpp": {}, ".cs": {},
	".rb": {}, ".php": {}, ".swift": {}, ".m": {}, ".lua": {}, ".sh": {}, ".bash": {},
	".sql": {}, ".proto": {}, ".graphql": {}, ".vue": {}, ".svelte": {},
	".yaml": {}, ".yml": {}, ".tf": {}, ".ex": {}, ".exs": {}, ".erl": {}, ".hs": {},
	".dart": {}, ".zig": {}, ".css": {}, ".scss": {}, ".html": {},
}

// conditionalExtensions are kept only for recognized manifests
var conditionalExtensions = map[string]struct{}{
	".json": {}, ".xml": {}, ".toml": {}, ".ini": {},
}

var manifestNames = map[string]struct{}{
	"package.json": {}, "composer.json": {}, "tsconfig.json": {}, "jsconfig.json": {},
	"deno.json": {}, "angular.json": {}, "nx.json": {}, "turbo.json": {}, "lerna.json": {},
	".eslintrc.json": {}, ".prettierrc.json": {}, ".babelrc.json": {},
	"pom.xml": {}, "build.xml": {}, "ivy.xml": {}, "androidmanifest.xml": {},
	"cargo.toml": {}, "pyproject.toml": {}, "poetry.toml": {}, "netlify.toml": {},
	"fly.toml": {}, "rustfmt.toml": {}, "gopls.toml": {},
	"tox.ini": {}, "pytest.ini": {}, "setup.ini": {}, "mypy.ini": {},
}

// artifactDirs mark build output and third-party trees anywhere in a path
var artifactDirs = map[string]struct{}{
	"node_modules": {}, "vendor": {}, "dist": {}, "build": {}, "target": {}, "out": {},
	"__pycache__": {}, ".venv": {}, "venv": {}, ".next": {}, ".nuxt": {},
	"bower_components": {}, "coverage": {}, ".gradle": {}, "bin": {}, "obj": {},
}

// ValueFilter is a heuristic relevance check layered on top of the
// extension allow-list
type ValueFilter struct{}

// NewValueFilter creates a ValueFilter
func NewValueFilter() *ValueFilter {
	return &ValueFilter{}
}

// IsValuable reports whether the file at rel is likely worth indexing
func (f *ValueFilter) IsValuable(rel string) bool {
	rel = pathutil.Normalize(rel)
	for _, dir := range pathutil.Ancestors(rel) {
		if _, ok := artifactDirs[strings.ToLower(pathutil.Base(dir))]; ok {
			return false
		}
	}

	name := strings.ToLower(pathutil.Base(rel))
	ext := pathutil.Ext(rel)
	stem := strings.TrimSuffix(name, ext)

	if _, ok := nonSourceNames[stem]; ok {
		return false
	}
	if _, ok := highValueNames[name]; ok {
		return true
	}
	for _, prefix := range highValuePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	if _, ok := sourceExtensions[ext]; ok {
		return true
	}
	if _, ok := conditionalExtensions[ext]; ok {
		_, ok := manifestNames[name]
		return ok
	}
	return false
}
