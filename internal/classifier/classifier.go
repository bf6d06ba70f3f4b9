package classifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/dshills/codemerkle/internal/pathutil"
	"github.com/dshills/codemerkle/pkg/types"
)

const (
	// DefaultSampleSize is the prefix length inspected by the byte heuristics
	DefaultSampleSize = 8 * 1024

	// NonPrintableThreshold is the ratio of control bytes above which a
	// sample is considered binary
	NonPrintableThreshold = 0.30
)

// Binary categories reported in placeholders
const (
	CategoryImage      = "image"
	CategoryAudio      = "audio"
	CategoryVideo      = "video"
	CategoryArchive    = "archive"
	CategoryDocument   = "document"
	CategoryExecutable = "executable"
	CategoryFont       = "font"
	CategoryBinary     = "binary"
)

// ErrInvalidEncoding is returned when content declares an encoding it does
// not conform to
var ErrInvalidEncoding = errors.New("invalid encoding")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Result is the classification of one file's bytes
type Result struct {
	IsBinary bool
	Encoding types.Encoding
	Content  string // decoded text; empty for binary files
	Hash     string // hex SHA-256 of the raw bytes
	Size     int64
	Category string // set for binary files
}

// Classifier detects binary content and text encodings. Its tables are
// read-only after construction so one instance may be shared by workers.
type Classifier struct {
	sampleSize int
}

// New creates a Classifier with the default sample size
func New() *Classifier {
	return &Classifier{sampleSize: DefaultSampleSize}
}

// NewWithSampleSize creates a Classifier that inspects n leading bytes
func NewWithSampleSize(n int) *Classifier {
	if n <= 0 {
		n = DefaultSampleSize
	}
	return &Classifier{sampleSize: n}
}

// Classify hashes data and decides whether it is binary or text.
//
// Decision order: extension tables, byte-order marks, magic signatures,
// null bytes in the sample, non-printable ratio in the sample, and finally
// UTF-8 validity. The hash is always computed over the raw bytes.
func (c *Classifier) Classify(data []byte, path string) (*Result, error) {
	sum := sha256.Sum256(data)
	res := &Result{
		Hash: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}

	ext := pathutil.Ext(path)
	if category, ok := binaryExtensions[ext]; ok {
		res.IsBinary = true
		res.Category = category
		return res, nil
	}

	// A UTF-16 BOM is checked before the null-byte heuristic since UTF-16
	// text is full of zero bytes.
	if enc, ok := detectBOM(data); ok {
		text, err := decode(data, enc)
		if err != nil {
			return nil, err
		}
		res.Encoding = enc
		res.Content = text
		return res, nil
	}

	if _, known := textExtensions[ext]; !known {
		if category, ok := matchMagic(data); ok {
			res.IsBinary = true
			res.Category = category
			return res, nil
		}

		sample := data
		if len(sample) > c.sampleSize {
			sample = sample[:c.sampleSize]
		}
		if bytes.IndexByte(sample, 0) >= 0 || nonPrintableRatio(sample) > NonPrintableThreshold {
			res.IsBinary = true
			res.Category = CategoryBinary
			return res, nil
		}

		if !utf8.Valid(data) {
			res.IsBinary = true
			res.Category = CategoryBinary
			return res, nil
		}
	}

	res.Encoding = detectEncoding(data)
	if res.Encoding == types.EncodingUnknown {
		res.Content = strings.ToValidUTF8(string(data), string(utf8.RuneError))
	} else {
		res.Content = string(data)
	}
	return res, nil
}

// detectBOM reports the encoding declared by a leading byte-order mark
func detectBOM(data []byte) (types.Encoding, bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return types.EncodingUTF8, true
	case bytes.HasPrefix(data, bomUTF16LE):
		return types.EncodingUTF16LE, true
	case bytes.HasPrefix(data, bomUTF16BE):
		return types.EncodingUTF16BE, true
	}
	return types.EncodingUnknown, false
}

// detectEncoding distinguishes ASCII from UTF-8 for BOM-less text
func detectEncoding(data []byte) types.Encoding {
	if !utf8.Valid(data) {
		return types.EncodingUnknown
	}
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return types.EncodingUTF8
		}
	}
	return types.EncodingASCII
}

// decode converts BOM-prefixed content to a UTF-8 string without the BOM
func decode(data []byte, enc types.Encoding) (string, error) {
	switch enc {
	case types.EncodingUTF8:
		body := data[len(bomUTF8):]
		if !utf8.Valid(body) {
			return "", ErrInvalidEncoding
		}
		return string(body), nil
	case types.EncodingUTF16LE, types.EncodingUTF16BE:
		if len(data)%2 != 0 {
			return "", fmt.Errorf("%w: odd byte count for %s", ErrInvalidEncoding, enc)
		}
		endian := unicode.LittleEndian
		if enc == types.EncodingUTF16BE {
			endian = unicode.BigEndian
		}
		out, err := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		return string(out), nil
	}
	return string(data), nil
}

// nonPrintableRatio returns the share of control bytes in sample. Bytes at
// or above 0x80 are treated as printable so multi-byte UTF-8 is not penalized.
func nonPrintableRatio(sample []byte) float64 {
	if len(sample) == 0 {
		return 0
	}
	count := 0
	for _, b := range sample {
		switch {
		case b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\b':
		case b < 0x20 || b == 0x7F:
			count++
		}
	}
	return float64(count) / float64(len(sample))
}

// Placeholder returns the descriptive marker used as chunk content for a
// binary file
func Placeholder(size int64, category string) string {
	if category == "" {
		category = CategoryBinary
	}
	return fmt.Sprintf("[BINARY FILE: %d bytes, type: %s]", size, category)
}

// Base64Marker wraps raw binary content for transports that accept it
func Base64Marker(data []byte) string {
	return "[BINARY:" + base64.StdEncoding.EncodeToString(data) + "]"
}
