// Package web renders the upload page.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var files embed.FS

var pageTmpl = template.Must(template.ParseFS(files, "templates/index.html"))

// PageData is what the page template needs.
type PageData struct {
	Title               string
	UploadcarePublicKey string
	SyncEndpoint        string
	HistoryEndpoint     string
}

func DefaultPageData(publicKey string) PageData {
	return PageData{
		Title:               "Upload and Synchronize Media",
		UploadcarePublicKey: publicKey,
		SyncEndpoint:        "/api/upload-and-sync",
		HistoryEndpoint:     "/api/history",
	}
}

// Render writes the page. It renders into a buffer first so a template
// error still produces a clean 500.
func Render(w http.ResponseWriter, data PageData) error {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
