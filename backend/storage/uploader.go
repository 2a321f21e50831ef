// Package storage uploads media to Aliyun OSS.
package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"studynotion/backend/apperrors"
)

const maxImageSize = 10 << 20

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type OSSUploader struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	timeout    time.Duration
}

// ErrNotConfigured is returned by NewOSSUploader when any OSS setting is empty.
var ErrNotConfigured = errors.New("oss: endpoint, access key, secret key and bucket are required")

func NewOSSUploader(endpoint, accessKey, secretKey, bucketName string, timeout time.Duration) (*OSSUploader, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, ErrNotConfigured
	}
	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	return &OSSUploader{bucket: bucket, endpoint: endpoint, bucketName: bucketName, timeout: timeout}, nil
}

func (u *OSSUploader) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := u.bucket.PutObject(key, r, opts...); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
	}
	return u.PublicURL(key), nil
}

// DisabledUploader rejects every upload. It serves when OSS is not configured.
type DisabledUploader struct{}

func (DisabledUploader) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	return "", fmt.Errorf("%w: object storage is not configured", apperrors.ErrStorage)
}

func (u *OSSUploader) PublicURL(key string) string {
	end := strings.TrimPrefix(strings.TrimPrefix(u.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", u.bucketName, end, key)
}

// UploadImage re-encodes an image as WebP, shrinking it to fit maxW x maxH.
func UploadImage(ctx context.Context, u Uploader, fh *multipart.FileHeader, folder string, maxW, maxH int) (string, error) {
	if fh == nil {
		return "", apperrors.New(apperrors.KindValidation, "Image file is required")
	}
	if fh.Size > maxImageSize {
		return "", apperrors.New(apperrors.KindValidation, "Image is too large")
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := ConvertToWebP(src, maxW, maxH)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	return u.Put(ctx, ObjectKey(folder, base+".webp"), bytes.NewReader(data), "image/webp")
}

// UploadFile stores the upload unchanged, e.g. lecture videos.
func UploadFile(ctx context.Context, u Uploader, fh *multipart.FileHeader, folder string) (string, error) {
	if fh == nil {
		return "", apperrors.New(apperrors.KindValidation, "File is required")
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	if ct == "" {
		ct = fh.Header.Get("Content-Type")
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return u.Put(ctx, ObjectKey(folder, fh.Filename), src, ct)
}

// ConvertToWebP decodes jpeg, png, gif or webp and encodes lossy WebP.
func ConvertToWebP(r io.Reader, maxW, maxH int) ([]byte, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := decodeImage(all)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Unsupported image format (use jpg/png/webp)")
	}

	b := img.Bounds()
	if (maxW > 0 && b.Dx() > maxW) || (maxH > 0 && b.Dy() > maxH) {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(all []byte) (image.Image, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	head := all
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.Contains(http.DetectContentType(head), "webp") {
		return webp.Decode(bytes.NewReader(all))
	}
	return imaging.Decode(bytes.NewReader(all), imaging.AutoOrientation(true))
}

// ObjectKey builds folder/slug_timestamp_rand.ext.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	key := fmt.Sprintf("%s_%s_%s%s", slugify(base), time.Now().UTC().Format("20060102_150405"), randHex(3), ext)
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}
	return key
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "file"
	}
	return s
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
