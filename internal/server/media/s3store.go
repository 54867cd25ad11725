package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/config"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/google/uuid"
)

// presignExpiry bounds presigned download links.
const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// s3API is the part of *s3.Client used for uploads.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3Store uploads media to an S3-compatible bucket. Objects are keyed
// <folder>/<yyyy>/<mm>/<uuid><ext> and addressed under the public base URL.
type S3Store struct {
	api        s3API
	presign    *s3.PresignClient
	bucket     string
	folder     string
	publicBase string
	timeout    time.Duration
	maxSize    int64
	now        func() time.Time
	newID      func() string
}

// NewS3Store builds the client from cfg. When the remote credentials are
// incomplete the returned store reports Configured() == false.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	s := &S3Store{
		bucket:     cfg.S3Bucket,
		folder:     strings.Trim(cfg.S3Folder, "/"),
		publicBase: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
		timeout:    cfg.MediaTimeout,
		maxSize:    cfg.MaxUploadSize,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if !cfg.RemoteConfigured() {
		return s, nil
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	s.api = client
	s.presign = newS3PresignClient(client)
	return s, nil
}

// Configured reports whether uploads can be attempted.
func (s *S3Store) Configured() bool {
	return s.api != nil
}

// Store uploads f with preset p. Images are fitted and re-encoded when they
// can be decoded and uploaded unchanged otherwise; videos go up as a
// multipart upload in p.ChunkSize parts.
func (s *S3Store) Store(ctx context.Context, f File, p Preset) (*models.Artifact, error) {
	if !s.Configured() {
		return nil, common.ErrRemoteNotConfigured
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data, err := s.readAll(f)
	if err != nil {
		return nil, err
	}

	ct := ContentType(f.Name, f.ContentType)
	ext := strings.ToLower(filepath.Ext(f.Name))
	art := &models.Artifact{
		Filename:     f.Name,
		Backend:      models.BackendS3,
		OriginalSize: int64(len(data)),
		Format:       strings.TrimPrefix(ext, "."),
	}

	if p.Kind == KindImage {
		if t, err := FitImage(data, p.MaxWidth, p.MaxHeight, p.Quality); err == nil {
			data, ct, ext = t.Data, t.ContentType, t.Ext
			art.Format, art.Width, art.Height = t.Format, t.Width, t.Height
		}
	}

	key := s.key(ext)
	if p.Kind == KindVideo && p.ChunkSize > 0 {
		err = s.putMultipart(ctx, key, ct, data, p)
	} else {
		_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String(ct),
			Metadata:      p.Metadata(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	art.Key = key
	art.URL = s.publicBase + "/" + key
	art.ContentType = ct
	art.Size = int64(len(data))
	return art, nil
}

func (s *S3Store) putMultipart(ctx context.Context, key, ct string, data []byte, p Preset) error {
	created, err := s.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ct),
		Metadata:    p.Metadata(),
	})
	if err != nil {
		return fmt.Errorf("create multipart upload: %w", err)
	}

	var parts []types.CompletedPart
	for i, chunk := range chunks(data, p.ChunkSize) {
		n := int32(i + 1)
		up, err := s.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			UploadId:      created.UploadId,
			PartNumber:    aws.Int32(n),
			Body:          bytes.NewReader(chunk),
			ContentLength: aws.Int64(int64(len(chunk))),
		})
		if err != nil {
			s.abort(ctx, key, created.UploadId)
			return fmt.Errorf("upload part %d: %w", n, err)
		}
		parts = append(parts, types.CompletedPart{ETag: up.ETag, PartNumber: aws.Int32(n)})
	}

	_, err = s.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        created.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		s.abort(ctx, key, created.UploadId)
		return fmt.Errorf("complete multipart upload: %w", err)
	}
	return nil
}

func (s *S3Store) abort(ctx context.Context, key string, uploadID *string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	_, _ = s.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: uploadID,
	})
}

// PresignGet returns a 15 minute download link that saves as filename.
func (s *S3Store) PresignGet(ctx context.Context, key, filename string) (string, error) {
	if s.presign == nil {
		return "", common.ErrRemoteNotConfigured
	}

	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if filename != "" {
		in.ResponseContentDisposition = aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}

	req, err := presignGetObject(s.presign, ctx, in, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) key(ext string) string {
	t := s.now().UTC()
	name := fmt.Sprintf("%04d/%02d/%s%s", t.Year(), int(t.Month()), s.newID(), ext)
	if s.folder == "" {
		return name
	}
	return s.folder + "/" + name
}

func (s *S3Store) readAll(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if s.maxSize > 0 {
		r = io.LimitReader(rc, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", common.ErrorValidation, f.Name, s.maxSize)
	}
	return data, nil
}

// chunks splits data into size-byte parts. Empty data yields one empty part.
func chunks(data []byte, size int64) [][]byte {
	if size <= 0 || int64(len(data)) <= size {
		return [][]byte{data}
	}
	var out [][]byte
	for len(data) > 0 {
		n := min(int64(len(data)), size)
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
