package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tesseract runs the tesseract command line tool, feeding the image on stdin
// and reading the text from stdout.
type Tesseract struct {
	cmd     string
	timeout time.Duration
}

// NewTesseract returns an engine running the binary at cmd. A zero timeout
// leaves the run bounded only by the caller's context.
func NewTesseract(cmd string, timeout time.Duration) *Tesseract {
	if cmd == "" {
		cmd = "tesseract"
	}
	return &Tesseract{cmd: cmd, timeout: timeout}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize returns the raw text tesseract prints for the image.
func (t *Tesseract) Recognize(ctx context.Context, in Input) (string, error) {
	if len(in.Image) == 0 {
		return "", ErrEmptyImage
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.cmd, t.args(in)...)
	cmd.Stdin = bytes.NewReader(in.Image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (t *Tesseract) args(in Input) []string {
	args := []string{"stdin", "stdout"}
	if lang := in.LanguageString(); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}

// Ping checks the binary can be executed.
func (t *Tesseract) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, t.cmd, "--version").Run(); err != nil {
		return fmt.Errorf("tesseract: %w", err)
	}
	return nil
}
