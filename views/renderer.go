package views

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
)

// Renderer executes the server-rendered pages. Templates are parsed once
// at startup; a template error surfaces as 500 without leaking a half
// written body.
type Renderer struct {
	templates *template.Template
}

func NewRenderer(pattern string) (*Renderer, error) {
	templates, err := template.ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("parsing view templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

func (renderer *Renderer) Render(writer http.ResponseWriter, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := renderer.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(writer)
	return err
}
