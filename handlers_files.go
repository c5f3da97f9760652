package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxUploadBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

func (a *App) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "File is required")
		return
	}
	defer file.Close()

	if !allowedImageTypes[header.Header.Get("Content-Type")] {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Only png, jpg and jpeg images are allowed")
		return
	}

	base := filepath.Base(header.Filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = uuid.NewString()
	}
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store file")
		return
	}
	dst, err := os.Create(filepath.Join(a.uploadDir, name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store file")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"imageUrl": "/file/" + name,
	})
}

func (a *App) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	// reject anything that escapes the upload directory
	if filename == "" || filename != filepath.Base(filename) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid filename")
		return
	}
	path := filepath.Join(a.uploadDir, filename)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	}
	http.ServeFile(w, r, path)
}
