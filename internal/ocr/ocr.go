// Package ocr turns page images into text through Tesseract.
//
// Two engines are provided. Tesseract drives the tesseract binary and is the
// default. Gosseract links libtesseract through cgo and is only compiled with
// the "gosseract" build tag:
//
//	go build -tags gosseract ./...
package ocr

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyImage = errors.New("ocr: empty image")

// DefaultLanguages are the trained data sets requested when none are configured.
var DefaultLanguages = []string{
	"ara", "bul", "ces", "chi-sim", "dan", "deu", "eng", "est", "fin", "fra", "ell",
	"hin", "hrv", "hun", "isl", "ita", "jpn", "kor", "lav", "lit", "mlt", "nld", "pol",
	"por", "rus", "ron", "slv", "slk", "spa", "swe",
}

// Input is one encoded image (PNG or JPEG) submitted for recognition.
type Input struct {
	Image     []byte
	Languages []string
}

// LanguageString joins the languages the way tesseract expects them ("eng+spa").
func (in Input) LanguageString() string {
	return strings.Join(in.Languages, "+")
}

// Engine recognizes text in images.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
	// Ping reports whether the engine is usable; used by the health check.
	Ping(ctx context.Context) error
}
