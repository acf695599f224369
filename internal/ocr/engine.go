package ocr

import (
	"fmt"
	"time"
)

// New returns the engine registered under name. "tesseract" is always
// available; "gosseract" requires the gosseract build tag.
func New(name, cmd string, timeout time.Duration) (Engine, error) {
	switch name {
	case "", "tesseract":
		return NewTesseract(cmd, timeout), nil
	default:
		if f, ok := extraEngines[name]; ok {
			return f(), nil
		}
		return nil, fmt.Errorf("ocr: unknown engine %q", name)
	}
}

var extraEngines = map[string]func() Engine{}
