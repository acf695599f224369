// Package extract runs the upload flow for one request: save each accepted
// file, optionally preprocess it, and OCR it.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/imgtext/internal/media"
	"github.com/imgtext/internal/ocr"
	"github.com/imgtext/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrNoValidImages is returned when none of the uploads could be processed.
var ErrNoValidImages = errors.New("no valid images to process")

// Upload is one file received from the client.
type Upload struct {
	Filename string
	Data     []byte
}

// File is the text extracted from one accepted upload.
type File struct {
	Filename string // secured name the file was saved under
	Path     string // storage key
	Text     string
	Pages    int
}

// Result holds the extracted files in upload order.
type Result struct {
	Files []File
}

// Combined joins the text of every file with a blank line.
func (r Result) Combined() string {
	texts := make([]string, len(r.Files))
	for i, f := range r.Files {
		texts[i] = f.Text
	}
	return strings.Join(texts, "\n\n")
}

type Options struct {
	AllowedExtensions []string
	Languages         []string
	Preprocess        bool
	KeepUploads       bool
	Concurrency       int
}

type Service struct {
	store  storage.Store
	engine ocr.Engine
	opts   Options
	logger *slog.Logger
}

func NewService(store storage.Store, engine ocr.Engine, opts Options, logger *slog.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{store: store, engine: engine, opts: opts, logger: logger}
}

// errSkipped marks an upload that was accepted by name but could not be decoded.
var errSkipped = errors.New("skipped")

// Extract processes the uploads concurrently. Files with a disallowed name are
// skipped, as are files that do not decode as images. An OCR failure on any
// file fails the whole call.
func (s *Service) Extract(ctx context.Context, uploads []Upload) (Result, error) {
	files := make([]File, len(uploads))
	done := make([]bool, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, u := range uploads {
		if !media.AllowedFile(u.Filename, s.opts.AllowedExtensions) {
			s.logger.Info("upload skipped: extension not allowed", "filename", u.Filename)
			continue
		}
		name := media.SecureFilename(u.Filename)
		if name == "" {
			s.logger.Info("upload skipped: unusable filename", "filename", u.Filename)
			continue
		}

		g.Go(func() error {
			f, err := s.process(gctx, name, u.Data)
			if errors.Is(err, errSkipped) {
				return nil
			}
			if err != nil {
				return err
			}
			files[i] = f
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for i := range files {
		if done[i] {
			res.Files = append(res.Files, files[i])
		}
	}
	if len(res.Files) == 0 {
		return Result{}, ErrNoValidImages
	}
	return res, nil
}

func (s *Service) process(ctx context.Context, name string, data []byte) (File, error) {
	contentType, err := media.ContentType(name)
	if err != nil {
		contentType = "application/octet-stream"
	}

	obj, err := s.store.Save(ctx, name, contentType, data)
	if err != nil {
		return File{}, fmt.Errorf("saving %s: %w", name, err)
	}
	if !s.opts.KeepUploads {
		defer func() {
			// the request context may already be cancelled
			if err := s.store.Remove(context.WithoutCancel(ctx), obj.Key); err != nil {
				s.logger.Warn("removing upload failed", "key", obj.Key, "error", err)
			}
		}()
	}

	pages, err := s.pages(name, data)
	if err != nil {
		s.logger.Warn("upload skipped: not a readable image", "filename", name, "error", err)
		return File{}, errSkipped
	}

	texts := make([]string, 0, len(pages))
	for n, page := range pages {
		if s.opts.Preprocess {
			page = media.Preprocess(page)
		}
		encoded, err := media.EncodePNG(page)
		if err != nil {
			return File{}, fmt.Errorf("encoding %s: %w", name, err)
		}

		text, err := s.engine.Recognize(ctx, ocr.Input{Image: encoded, Languages: s.opts.Languages})
		if err != nil {
			return File{}, fmt.Errorf("recognizing %s page %d: %w", name, n+1, err)
		}
		texts = append(texts, text)
	}

	s.logger.Info("upload processed",
		"filename", obj.Name,
		"pages", len(pages),
		"bytes", obj.Size,
		"preprocessed", s.opts.Preprocess,
	)

	return File{
		Filename: obj.Name,
		Path:     obj.Key,
		Text:     strings.Join(texts, "\n\n"),
		Pages:    len(pages),
	}, nil
}

func (s *Service) pages(name string, data []byte) ([]image.Image, error) {
	if media.IsPDF(name) {
		return media.Rasterize(data)
	}
	img, err := media.Decode(data)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}
