// Package media ingests uploaded files: PDF documents go to the local upload
// directory, images and videos go to the remote object store with per-kind
// transform presets.
package media

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/folio/internal/common"
)

// Kind is the closed set of upload classes.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindVideo:
		return "video"
	default:
		return "image"
	}
}

// File is one uploaded file as seen by the router.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".webm": {}, ".mkv": {}, ".avi": {}, ".mpeg": {}, ".mpg": {},
}

var contentTypes = map[string]string{
	".pdf":  common.ContentTypePDF,
	".jpg":  common.ContentTypeJPEG,
	".jpeg": common.ContentTypeJPEG,
	".png":  common.ContentTypePNG,
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
}

// Classify picks the upload class. A declared application/pdf type or a .pdf
// suffix (any case) is a document; a video/* type or a video suffix is a
// video; everything else is treated as an image.
func Classify(filename, contentType string) Kind {
	ct := baseType(contentType)
	ext := strings.ToLower(filepath.Ext(filename))

	if ct == common.ContentTypePDF || ext == ".pdf" {
		return KindDocument
	}
	if strings.HasPrefix(ct, "video/") {
		return KindVideo
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	return KindImage
}

// ContentType returns the declared type, or a guess from the extension when
// the client sent none or a generic one.
func ContentType(filename, declared string) string {
	if ct := baseType(declared); ct != "" && ct != common.ContentTypeOctetStream {
		return ct
	}
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return common.ContentTypeOctetStream
}

func baseType(contentType string) string {
	if contentType == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return t
}
