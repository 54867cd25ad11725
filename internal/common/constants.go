package common

// Content types served or produced by the upload pipeline.
const (
	ContentTypePDF         = "application/pdf"
	ContentTypeJPEG        = "image/jpeg"
	ContentTypePNG         = "image/png"
	ContentTypeOctetStream = "application/octet-stream"
)

// MiB is used for upload limits and multipart part sizes.
const MiB = 1 << 20
