package snapshot

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizePath canonicalizes a raw path: separators become "/", repeated
// slashes collapse, "." segments drop, ".." segments resolve against earlier
// segments, and the result is NFC-normalized. Case is preserved: lowercasing
// would be lossy on case-sensitive filesystems. A path that is empty or
// escapes the root is invalid.
func NormalizePath(raw string) (string, error) {
	p := strings.ReplaceAll(raw, "\\", "/")
	p = strings.TrimPrefix(p, "/")

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			// collapsed
		case "..":
			if len(segments) == 0 {
				return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, raw)
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}

	return norm.NFC.String(strings.Join(segments, "/")), nil
}

// NormalizeContent normalizes text content: CRLF and lone CR become LF, and
// the bytes are Unicode NFC-normalized. Binary content (invalid UTF-8 or
// containing NUL) passes through unmodified.
func NormalizeContent(content []byte) []byte {
	if IsBinary(content) {
		return content
	}

	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
	return norm.NFC.Bytes(normalized)
}

// IsBinary reports whether content should be treated as binary: invalid
// UTF-8 or containing a NUL byte.
func IsBinary(content []byte) bool {
	if !utf8.Valid(content) {
		return true
	}
	return bytes.IndexByte(content, 0) >= 0
}
