package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Kind
	}{
		{"resume.PDF", "", KindDocument},
		{"resume.pdf", "application/octet-stream", KindDocument},
		{"blob", "application/pdf", KindDocument},
		{"blob.bin", "application/pdf; charset=binary", KindDocument},
		{"photo.png", "image/png", KindImage},
		{"photo.png", "", KindImage},
		{"clip.mp4", "", KindVideo},
		{"clip.MOV", "application/octet-stream", KindVideo},
		{"stream", "video/webm", KindVideo},
		{"archive.zip", "application/zip", KindImage},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename, tt.contentType))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "document", KindDocument.String())
	assert.Equal(t, "image", KindImage.String())
	assert.Equal(t, "video", KindVideo.String())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a.bin", "image/png"))
	assert.Equal(t, "video/mp4", ContentType("a.MP4", ""))
	assert.Equal(t, "application/pdf", ContentType("a.pdf", "application/octet-stream"))
	assert.Equal(t, "text/plain", ContentType("a.txt", "text/plain; charset=utf-8"))
	assert.Equal(t, "application/octet-stream", ContentType("a.xyz", ""))
}
