package classifier

import "bytes"

// binaryExtensions short-circuits classification for well-known binary formats
var binaryExtensions = map[string]string{
	// images
	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage, ".gif": CategoryImage,
	".webp": CategoryImage, ".ico": CategoryImage, ".bmp": CategoryImage, ".tiff": CategoryImage,
	".psd": CategoryImage,
	// audio
	".mp3": CategoryAudio, ".wav": CategoryAudio, ".ogg": CategoryAudio, ".flac": CategoryAudio,
	".m4a": CategoryAudio,
	// video
	".mp4": CategoryVideo, ".m4v": CategoryVideo, ".mov": CategoryVideo, ".mkv": CategoryVideo,
	".webm": CategoryVideo, ".avi": CategoryVideo,
	// archives
	".zip": CategoryArchive, ".jar": CategoryArchive, ".gz": CategoryArchive, ".tgz": CategoryArchive,
	".bz2": CategoryArchive, ".xz": CategoryArchive, ".7z": CategoryArchive, ".rar": CategoryArchive,
	".tar": CategoryArchive,
	// documents
	".pdf": CategoryDocument, ".doc": CategoryDocument, ".docx": CategoryDocument,
	".xls": CategoryDocument, ".xlsx": CategoryDocument, ".ppt": CategoryDocument,
	".pptx": CategoryDocument,
	// executables and object code
	".exe": CategoryExecutable, ".dll": CategoryExecutable, ".so": CategoryExecutable,
	".dylib": CategoryExecutable, ".o": CategoryExecutable, ".a": CategoryExecutable,
	".class": CategoryExecutable, ".pyc": CategoryExecutable, ".wasm": CategoryExecutable,
	".cubin": CategoryExecutable, ".fatbin": CategoryExecutable,
	// fonts
	".woff": CategoryFont, ".woff2": CategoryFont, ".ttf": CategoryFont, ".otf": CategoryFont,
	".eot": CategoryFont,
}

// textExtensions skip the byte heuristics; only encoding is detected
var textExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".mjs": {}, ".cjs": {},
	".java": {}, ".kt": {}, ".rs": {}, ".cs": {}, ".c": {}, ".h": {}, ".cc": {}, ".cpp": {},
	".hpp": {}, ".rb": {}, ".php": {}, ".swift": {}, ".scala": {}, ".sh": {}, ".bash": {},
	".sql": {}, ".md": {}, ".txt": {}, ".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
	".xml": {}, ".html": {}, ".css": {}, ".scss": {}, ".vue": {}, ".svelte": {}, ".proto": {},
	".ini": {}, ".cfg": {}, ".svg": {},
}

type signature struct {
	magic    []byte
	offset   int
	category string
}

var signatures = []signature{
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, 0, CategoryImage},
	{[]byte{0xFF, 0xD8, 0xFF}, 0, CategoryImage},
	{[]byte("GIF87a"), 0, CategoryImage},
	{[]byte("GIF89a"), 0, CategoryImage},
	{[]byte("%PDF-"), 0, CategoryDocument},
	{[]byte{'P', 'K', 0x03, 0x04}, 0, CategoryArchive},
	{[]byte{'P', 'K', 0x05, 0x06}, 0, CategoryArchive},
	{[]byte("Rar!\x1A\x07"), 0, CategoryArchive},
	{[]byte{0x7F, 'E', 'L', 'F'}, 0, CategoryExecutable},
	{[]byte("MZ"), 0, CategoryExecutable},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, 0, CategoryExecutable},
}

// matchMagic checks data against known file signatures
func matchMagic(data []byte) (string, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end {
			continue
		}
		if bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig.category, true
		}
	}
	return "", false
}
