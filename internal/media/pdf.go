package media

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Rasterize renders every page of a PDF document.
func Rasterize(data []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, errors.New("pdf has no pages")
	}

	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
