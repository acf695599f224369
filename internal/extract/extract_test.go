package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/imgtext/internal/media"
	"github.com/imgtext/internal/ocr"
	"github.com/imgtext/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
}

func newMemStore() *memStore {
	return &memStore{saved: map[string][]byte{}}
}

func (m *memStore) Save(_ context.Context, name, _ string, data []byte) (storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[name] = data
	return storage.Object{Name: name, Key: "mem/" + name, Size: int64(len(data))}, nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, key)
	return nil
}

// fakeEngine answers with the text registered for the image's width, so each
// test image can carry its own expected text.
type fakeEngine struct {
	mu     sync.Mutex
	byW    map[int]string
	calls  int
	langs  []string
	widths []int
	err    error
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Ping(ctx context.Context) error { return nil }

func (f *fakeEngine) Recognize(_ context.Context, in ocr.Input) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.langs = in.Languages
	if f.err != nil {
		return "", f.err
	}
	img, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return "", err
	}
	w := img.Bounds().Dx()
	f.widths = append(f.widths, w)
	return f.byW[w], nil
}

func pngOfWidth(t *testing.T, w int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, 4))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.White)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultOptions() Options {
	return Options{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		Languages:         []string{"eng", "spa"},
		KeepUploads:       true,
		Concurrency:       4,
	}
}

func TestExtractCombinesInUploadOrder(t *testing.T) {
	engine := &fakeEngine{byW: map[int]string{3: "first", 5: "second", 7: "third"}}
	svc := NewService(newMemStore(), engine, defaultOptions(), discardLogger())

	res, err := svc.Extract(context.Background(), []Upload{
		{Filename: "a.png", Data: pngOfWidth(t, 3)},
		{Filename: "b.PNG", Data: pngOfWidth(t, 5)},
		{Filename: "c.png", Data: pngOfWidth(t, 7)},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if got := res.Combined(); got != "first\n\nsecond\n\nthird" {
		t.Errorf("unexpected combined text %q", got)
	}
	if res.Files[1].Filename != "b.PNG" {
		t.Errorf("unexpected filename %q", res.Files[1].Filename)
	}
	if len(engine.langs) != 2 || engine.langs[1] != "spa" {
		t.Errorf("expected configured languages to reach the engine, got %v", engine.langs)
	}
}

func TestExtractSkipsDisallowedFiles(t *testing.T) {
	store := newMemStore()
	engine := &fakeEngine{byW: map[int]string{3: "kept"}}
	svc := NewService(store, engine, defaultOptions(), discardLogger())

	res, err := svc.Extract(context.Background(), []Upload{
		{Filename: "notes.txt", Data: []byte("hello")},
		{Filename: "noextension", Data: pngOfWidth(t, 3)},
		{Filename: "scan.png", Data: pngOfWidth(t, 3)},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(res.Files) != 1 || res.Files[0].Text != "kept" {
		t.Fatalf("expected only scan.png to be processed, got %+v", res.Files)
	}
	if _, ok := store.saved["notes.txt"]; ok {
		t.Error("disallowed file must not be saved")
	}
	if engine.calls != 1 {
		t.Errorf("expected one OCR call, got %d", engine.calls)
	}
}

func TestExtractSecuresFilename(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeEngine{}, defaultOptions(), discardLogger())

	res, err := svc.Extract(context.Background(), []Upload{
		{Filename: "../../recibo ñ.png", Data: pngOfWidth(t, 3)},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Files[0].Filename != "recibo_n.png" {
		t.Errorf("unexpected secured name %q", res.Files[0].Filename)
	}
	if _, ok := store.saved["recibo_n.png"]; !ok {
		t.Error("expected file saved under its secured name")
	}
}

func TestExtractNoValidImages(t *testing.T) {
	svc := NewService(newMemStore(), &fakeEngine{}, defaultOptions(), discardLogger())

	cases := map[string][]Upload{
		"empty":       nil,
		"disallowed":  {{Filename: "doc.txt", Data: []byte("x")}},
		"undecodable": {{Filename: "broken.png", Data: []byte("not a png")}},
	}
	for name, uploads := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Extract(context.Background(), uploads)
			if !errors.Is(err, ErrNoValidImages) {
				t.Errorf("expected ErrNoValidImages, got %v", err)
			}
		})
	}
}

func TestExtractOCRFailure(t *testing.T) {
	boom := errors.New("engine exploded")
	svc := NewService(newMemStore(), &fakeEngine{err: boom}, defaultOptions(), discardLogger())

	_, err := svc.Extract(context.Background(), []Upload{{Filename: "a.png", Data: pngOfWidth(t, 3)}})
	if !errors.Is(err, boom) {
		t.Errorf("expected engine error, got %v", err)
	}
}

func TestExtractPreprocessDoublesImage(t *testing.T) {
	engine := &fakeEngine{byW: map[int]string{6: "big"}}
	opts := defaultOptions()
	opts.Preprocess = true
	svc := NewService(newMemStore(), engine, opts, discardLogger())

	res, err := svc.Extract(context.Background(), []Upload{{Filename: "a.png", Data: pngOfWidth(t, 3)}})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(engine.widths) != 1 || engine.widths[0] != 6 {
		t.Errorf("expected preprocessed image of width 6, got %v", engine.widths)
	}
	if res.Combined() != "big" {
		t.Errorf("unexpected text %q", res.Combined())
	}
}

func TestExtractRemovesUploadsWhenNotKept(t *testing.T) {
	store := newMemStore()
	opts := defaultOptions()
	opts.KeepUploads = false
	svc := NewService(store, &fakeEngine{}, opts, discardLogger())

	if _, err := svc.Extract(context.Background(), []Upload{{Filename: "a.png", Data: pngOfWidth(t, 3)}}); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "mem/a.png" {
		t.Errorf("expected upload to be removed, got %v", store.removed)
	}
}

func TestCombinedSingleFile(t *testing.T) {
	r := Result{Files: []File{{Text: "only"}}}
	if r.Combined() != "only" {
		t.Errorf("unexpected combined text %q", r.Combined())
	}
}

func TestExtractPDFJoinsPages(t *testing.T) {
	data, err := os.ReadFile("testdata/two-pages.pdf")
	if err != nil {
		t.Fatal(err)
	}
	pages, err := media.Rasterize(data)
	if err != nil {
		t.Fatalf("rasterizing fixture: %v", err)
	}

	engine := &fakeEngine{byW: map[int]string{
		pages[0].Bounds().Dx(): "pagina uno",
		pages[1].Bounds().Dx(): "pagina dos",
	}}
	opts := defaultOptions()
	opts.AllowedExtensions = append(opts.AllowedExtensions, "pdf")
	svc := NewService(newMemStore(), engine, opts, discardLogger())

	res, err := svc.Extract(context.Background(), []Upload{
		{Filename: "scan.pdf", Data: data},
		{Filename: "a.png", Data: pngOfWidth(t, 3)},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(res.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(res.Files))
	}
	pdf := res.Files[0]
	if pdf.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", pdf.Pages)
	}
	if pdf.Text != "pagina uno\n\npagina dos" {
		t.Errorf("unexpected pdf text %q", pdf.Text)
	}
	if res.Files[1].Pages != 1 {
		t.Errorf("expected image to count as one page, got %d", res.Files[1].Pages)
	}
}

func TestExtractSkipsPDFWhenNotAllowed(t *testing.T) {
	data, err := os.ReadFile("testdata/two-pages.pdf")
	if err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{}
	svc := NewService(newMemStore(), engine, defaultOptions(), discardLogger())

	_, err = svc.Extract(context.Background(), []Upload{{Filename: "scan.pdf", Data: data}})
	if !errors.Is(err, ErrNoValidImages) {
		t.Fatalf("expected ErrNoValidImages, got %v", err)
	}
	if engine.calls != 0 {
		t.Errorf("expected no OCR calls, got %d", engine.calls)
	}
}
