package handlers

import (
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"
)

type textExtractor interface {
	ExtractText(filename string, r io.Reader) (string, error)
}

// DocumentHandler turns uploaded course files into text for the assistant input.
type DocumentHandler struct {
	extractor textExtractor
	maxBytes  int64
	log       *zap.Logger
}

func NewDocumentHandler(extractor textExtractor, maxUploadMB int, log *zap.Logger) *DocumentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentHandler{extractor: extractor, maxBytes: int64(maxUploadMB) << 20, log: log}
}

func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File exceeds the upload limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Expected a multipart upload", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"file": "is required"}, r))
		return
	}
	defer file.Close()

	text, err := h.extractor.ExtractText(header.Filename, file)
	if err != nil {
		h.log.Info("document extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename":   header.Filename,
		"text":       text,
		"characters": utf8.RuneCountInString(text),
	})
}
