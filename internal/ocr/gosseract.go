//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract recognizes text in-process through libtesseract.
type Gosseract struct {
	clientFactory func() *gosseract.Client
}

func NewGosseract() *Gosseract {
	return &Gosseract{clientFactory: gosseract.NewClient}
}

func (g *Gosseract) Name() string { return "gosseract" }

// Recognize uses a fresh client per image; clients are not safe for
// concurrent use.
func (g *Gosseract) Recognize(ctx context.Context, in Input) (string, error) {
	if len(in.Image) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := g.clientFactory()
	defer c.Close()

	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return "", fmt.Errorf("gosseract: set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("gosseract: set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}

func (g *Gosseract) Ping(ctx context.Context) error {
	c := g.clientFactory()
	defer c.Close()
	if v := c.Version(); v == "" {
		return fmt.Errorf("gosseract: libtesseract unavailable")
	}
	return nil
}

func init() {
	extraEngines["gosseract"] = func() Engine { return NewGosseract() }
}
