package filter

import (
	"regexp"
	"strings"
)

var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.min\.(js|mjs|css)$`),
	regexp.MustCompile(`[.\-_]bundle\.(js|mjs|css)$`),
	regexp.MustCompile(`\.chunk\.(js|mjs|css)$`),
	regexp.MustCompile(`\.(js|css)\.map$`),
	regexp.MustCompile(`\.(ptx|cubin|fatbin)$`),
}

var junkNames = map[string]struct{}{
	".ds_store":   {},
	"thumbs.db":   {},
	"desktop.ini": {},
	"ehthumbs.db": {},
}

// IsJunk reports whether a file name belongs to a generated or metadata
// artifact. It takes precedence over the extension allow-list.
func IsJunk(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := junkNames[lower]; ok {
		return true
	}
	for _, re := range junkPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
