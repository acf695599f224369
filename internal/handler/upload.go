package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/imgtext/internal/config"
	"github.com/imgtext/internal/extract"
)

const (
	msgInvalidToken  = "Token inválido"
	msgNoValidImages = "No se pudieron procesar imágenes válidas"
	msgTooLarge      = "Los archivos superan el tamaño máximo permitido"
	msgTooManyFiles  = "Demasiados archivos en una sola subida"
	msgBadForm       = "Formulario inválido"
	msgOCRFailed     = "Error al procesar las imágenes. Revisa los logs del servidor."
)

// maxMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const maxMemory = 8 << 20

var errTooManyFiles = errors.New("too many files")

type tokenVerifier interface {
	Verify(token string) bool
}

type extractor interface {
	Extract(ctx context.Context, uploads []extract.Upload) (extract.Result, error)
}

// OCRHandler serves the upload form and runs text extraction.
type OCRHandler struct {
	BaseHandler
	tokens    tokenVerifier
	extractor extractor
	upload    config.UploadConfig
}

func NewOCRHandler(base BaseHandler, tokens tokenVerifier, ex extractor, upload config.UploadConfig) *OCRHandler {
	return &OCRHandler{BaseHandler: base, tokens: tokens, extractor: ex, upload: upload}
}

type indexPage struct {
	Extensions string
	Accept     string
}

// Index renders the upload form.
func (h *OCRHandler) Index(w http.ResponseWriter, r *http.Request) {
	accept := make([]string, len(h.upload.AllowedExtensions))
	for i, ext := range h.upload.AllowedExtensions {
		accept[i] = "." + ext
	}
	h.render(w, r, http.StatusOK, "index.html", indexPage{
		Extensions: strings.Join(h.upload.AllowedExtensions, ", "),
		Accept:     strings.Join(accept, ","),
	})
}

type resultsPage struct {
	Files []extract.File
	Text  string
}

// Upload checks the access token, extracts text from every accepted file and
// renders the results page.
func (h *OCRHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.formError(w, r, err)
		return
	}
	defer removeMultipart(r)

	if !h.tokens.Verify(r.FormValue("access_token")) {
		h.Logger.Warn("upload rejected: invalid access token", "remote", r.RemoteAddr)
		h.message(w, r, http.StatusForbidden, msgInvalidToken)
		return
	}

	uploads, err := h.readUploads(r)
	if errors.Is(err, http.ErrMissingFile) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.formError(w, r, err)
		return
	}

	res, err := h.extractor.Extract(r.Context(), uploads)
	switch {
	case errors.Is(err, extract.ErrNoValidImages):
		h.message(w, r, http.StatusBadRequest, msgNoValidImages)
		return
	case err != nil:
		h.logError(r, err)
		h.message(w, r, http.StatusInternalServerError, msgOCRFailed)
		return
	}

	h.render(w, r, http.StatusOK, "results.html", resultsPage{Files: res.Files, Text: res.Combined()})
}

type apiFile struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// APIExtract is the JSON counterpart of Upload. The token may be sent in the
// X-Access-Token header instead of the form.
func (h *OCRHandler) APIExtract(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			h.errorResponse(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit))
			return
		}
		h.errorResponse(w, r, http.StatusBadRequest, "body must be multipart/form-data")
		return
	}
	defer removeMultipart(r)

	token := r.Header.Get("X-Access-Token")
	if token == "" {
		token = r.FormValue("access_token")
	}
	if !h.tokens.Verify(token) {
		h.errorResponse(w, r, http.StatusForbidden, "invalid access token")
		return
	}

	uploads, err := h.readUploads(r)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		h.errorResponse(w, r, http.StatusBadRequest, "no file part in request")
		return
	case errors.Is(err, errTooManyFiles):
		h.errorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("at most %d files per request", h.upload.MaxFiles))
		return
	case err != nil:
		h.serverErrorResponse(w, r, err)
		return
	}

	res, err := h.extractor.Extract(r.Context(), uploads)
	switch {
	case errors.Is(err, extract.ErrNoValidImages):
		h.errorResponse(w, r, http.StatusUnprocessableEntity, "no valid images could be processed")
		return
	case err != nil:
		h.serverErrorResponse(w, r, err)
		return
	}

	files := make([]apiFile, len(res.Files))
	for i, f := range res.Files {
		files[i] = apiFile{Filename: f.Filename, Text: f.Text}
	}
	if err := h.writeJSON(w, http.StatusOK, envelope{"files": files, "text": res.Combined()}, nil); err != nil {
		h.logError(r, err)
	}
}

// parseForm bounds the body and parses it. A urlencoded body is accepted; it
// simply carries no files.
func (h *OCRHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxBytes())
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

func (h *OCRHandler) formError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesError):
		h.message(w, r, http.StatusRequestEntityTooLarge, msgTooLarge)
	case errors.Is(err, errTooManyFiles):
		h.message(w, r, http.StatusBadRequest, msgTooManyFiles)
	default:
		h.Logger.Debug("upload form rejected", "error", err)
		h.message(w, r, http.StatusBadRequest, msgBadForm)
	}
}

// readUploads returns the files sent under the "file" field, or
// http.ErrMissingFile when there is no such field.
func (h *OCRHandler) readUploads(r *http.Request) ([]extract.Upload, error) {
	if r.MultipartForm == nil {
		return nil, http.ErrMissingFile
	}
	headers, ok := r.MultipartForm.File["file"]
	if !ok {
		return nil, http.ErrMissingFile
	}
	if h.upload.MaxFiles > 0 && len(headers) > h.upload.MaxFiles {
		return nil, errTooManyFiles
	}

	uploads := make([]extract.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, extract.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
