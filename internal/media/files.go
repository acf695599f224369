package media

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrUnsupported = errors.New("unsupported file type")

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var extToContentType = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

// Extension returns the lowercase text after the last dot, or "" when the
// name has no dot at all.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// AllowedFile reports whether name carries one of the allowed extensions.
func AllowedFile(name string, allowed []string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// ContentType maps a file name to its MIME type by extension.
func ContentType(name string) (string, error) {
	ct, ok := extToContentType[Extension(name)]
	if !ok {
		return "", ErrUnsupported
	}
	return ct, nil
}

// IsPDF reports whether the name refers to a PDF document.
func IsPDF(name string) bool {
	return Extension(name) == "pdf"
}

// SecureFilename reduces a client supplied name to a flat ASCII file name that
// is safe to join onto the upload directory. The result can be empty.
func SecureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(t, name); err == nil {
		name = s
	}

	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	name = b.String()

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	// filepath.Base guards against anything the character filter missed.
	if name != "" {
		name = filepath.Base(name)
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
