package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/extraction.tmpl
var templateFS embed.FS

var extractionTmpl = template.Must(template.ParseFS(templateFS, "templates/extraction.tmpl"))

const extractionSubject = "Datos extraídos de las imágenes"

// Contact is the text shown on the results page plus the fields the visitor
// filled in before asking for it to be emailed.
type Contact struct {
	Text    string
	Phone   string
	Address string
	Comment string
}

// ExtractionEmail builds the message carrying extracted text and contact
// details. From and To are left for Send to fill from the configuration.
func ExtractionEmail(c Contact) (Message, error) {
	var buf bytes.Buffer
	if err := extractionTmpl.Execute(&buf, c); err != nil {
		return Message{}, fmt.Errorf("rendering extraction email: %w", err)
	}
	return Message{
		Subject: extractionSubject,
		Body:    strings.TrimSuffix(buf.String(), "\n"),
	}, nil
}
