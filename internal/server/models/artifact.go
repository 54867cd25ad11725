package models

// Storage backend tags.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Artifact describes one ingested file.
type Artifact struct {
	Filename     string `json:"filename"`
	URL          string `json:"url"`
	Backend      string `json:"backend"`
	Key          string `json:"key,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size"`
	OriginalSize int64  `json:"originalSize"`
	Format       string `json:"format,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// FileResult is the outcome of ingesting one file of a batch: either an
// Artifact or an error message.
type FileResult struct {
	Filename string    `json:"filename"`
	Kind     string    `json:"kind"`
	Artifact *Artifact `json:"artifact,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// OK reports whether the file was stored.
func (r FileResult) OK() bool {
	return r.Artifact != nil && r.Error == ""
}
