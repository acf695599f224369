package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/imgtext/internal/mailer"
)

const (
	msgEmailSent    = "Correo enviado correctamente."
	msgEmailFailed  = "Error al enviar el correo. Revisa los logs del servidor."
	msgMissingField = "Faltan campos obligatorios en el formulario"
)

// maxEmailForm bounds the results form; it carries the extracted text.
const maxEmailForm = 4 << 20

type sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// EmailHandler mails extracted text and contact details to the configured
// mailbox.
type EmailHandler struct {
	BaseHandler
	mailer sender
}

func NewEmailHandler(base BaseHandler, m sender) *EmailHandler {
	return &EmailHandler{BaseHandler: base, mailer: m}
}

var contactFields = []string{"extracted_text", "telefono", "direccion", "comentario"}

// Send handles the results form. Every field must be present, though any may
// be empty.
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEmailForm)
	if err := r.ParseMultipartForm(maxEmailForm); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			h.message(w, r, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		h.message(w, r, http.StatusBadRequest, msgBadForm)
		return
	}
	defer removeMultipart(r)

	for _, field := range contactFields {
		if _, ok := r.PostForm[field]; !ok {
			h.message(w, r, http.StatusBadRequest, msgMissingField)
			return
		}
	}

	msg, err := mailer.ExtractionEmail(mailer.Contact{
		Text:    r.PostForm.Get("extracted_text"),
		Phone:   r.PostForm.Get("telefono"),
		Address: r.PostForm.Get("direccion"),
		Comment: r.PostForm.Get("comentario"),
	})
	if err != nil {
		h.logError(r, err)
		h.message(w, r, http.StatusInternalServerError, msgEmailFailed)
		return
	}

	if err := h.mailer.Send(r.Context(), msg); err != nil {
		h.logError(r, err)
		h.message(w, r, http.StatusBadGateway, msgEmailFailed)
		return
	}

	h.message(w, r, http.StatusOK, msgEmailSent)
}
