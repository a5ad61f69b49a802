package handler

import (
	"net/http"
	"strconv"
)

type blobResponse struct {
	contentType string
	data        []byte
	cache       string
}

func (b blobResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b.data)))
	if b.cache != "" {
		w.Header().Set("Cache-Control", b.cache)
	}
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(b.data)
	return err
}

// Blob writes raw bytes with the given content type, e.g. a generated image.
func Blob(contentType string, data []byte) Response {
	return blobResponse{contentType: contentType, data: data, cache: "no-store"}
}
