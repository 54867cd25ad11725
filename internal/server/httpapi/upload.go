package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/media"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// upload ingests the "files" parts of a multipart form. The status tells
// whether every file (200), some (207) or none (502) were stored; data always
// carries one result per file.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxFiles)*h.maxSize+common.MiB)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(ctx, h.logger, w, fmt.Errorf("%w: invalid multipart form: %v", common.ErrorValidation, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, err := h.uploadedFiles(r.MultipartForm.File["files"])
	if err != nil {
		writeError(ctx, h.logger, w, err)
		return
	}

	results, err := h.deps.Media.Ingest(ctx, files)
	if err != nil {
		writeError(ctx, h.logger, w, err)
		return
	}

	stored := 0
	for _, res := range results {
		if res.OK() {
			stored++
		}
	}

	h.logger.Info(ctx, "files uploaded", "stored", stored, "files", len(results), "by", actor(ctx))

	status := http.StatusOK
	switch {
	case stored == 0:
		status = http.StatusBadGateway
	case stored < len(results):
		status = http.StatusMultiStatus
	}

	body := envelope{
		Success: stored == len(results),
		Data:    results,
		Message: fmt.Sprintf("%d of %d files uploaded", stored, len(results)),
	}
	if !body.Success {
		body.Error = "some files failed to upload"
		if stored == 0 {
			body.Error = "all files failed to upload"
		}
	}
	writeJSON(w, status, body)
}

func (h *Handler) uploadedFiles(headers []*multipart.FileHeader) ([]media.File, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no files in field \"files\"", common.ErrorValidation)
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", common.ErrorValidation, h.maxFiles)
	}

	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		if h.maxSize > 0 && fh.Size > h.maxSize {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", common.ErrorValidation, fh.Filename, h.maxSize)
		}
		files = append(files, media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files, nil
}
