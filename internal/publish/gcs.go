package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jonathan/clinic-studio/internal/types"
)

// GCSConfig selects the bucket images are uploaded to.
type GCSConfig struct {
	Bucket string
	// Prefix is prepended to object names, e.g. "posts".
	Prefix string
	// PublicBaseURL replaces https://storage.googleapis.com, e.g. a CDN domain.
	PublicBaseURL string
	// EmulatorHost points the client at a fake-gcs-server without authentication.
	EmulatorHost string
}

// GCSHost uploads images to a publicly readable Cloud Storage bucket.
type GCSHost struct {
	client *storage.Client
	cfg    GCSConfig
}

// NewGCSHost creates a storage client for cfg.
func NewGCSHost(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCSHost, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		opts = append(opts, option.WithEndpoint(host+"/storage/v1/"), option.WithoutAuthentication())
		if cfg.PublicBaseURL == "" {
			cfg.PublicBaseURL = host
		}
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSHost{client: client, cfg: cfg}, nil
}

// Configured implements ImageHost. The bucket is fixed at construction.
func (h *GCSHost) Configured(Credentials) bool {
	return h.client != nil
}

// Upload implements ImageHost. Objects are content addressed so a repeated
// upload of the same bytes overwrites the same object.
func (h *GCSHost) Upload(ctx context.Context, _ Credentials, img *types.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", &HostError{Host: "gcs", Message: "no image data"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := objectKey(h.cfg.Prefix, img)
	w := h.client.Bucket(h.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = mimeOrPNG(img.MIMEType)
	if _, err := io.Copy(w, bytes.NewReader(img.Data)); err != nil {
		_ = w.Close()
		return "", &HostError{Host: "gcs", Message: "failed to write object", Cause: err}
	}
	if err := w.Close(); err != nil {
		return "", &HostError{Host: "gcs", Message: "failed to close object writer", Cause: err}
	}
	return publicObjectURL(h.cfg.PublicBaseURL, h.cfg.Bucket, key), nil
}

// Close releases the storage client.
func (h *GCSHost) Close() error {
	return h.client.Close()
}

func objectKey(prefix string, img *types.Image) string {
	sum := sha256.Sum256(img.Data)
	name := hex.EncodeToString(sum[:]) + extensionFor(img.MIMEType)
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func publicObjectURL(base, bucket, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, key)
}

func extensionFor(mimeType string) string {
	switch mimeOrPNG(mimeType) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func mimeOrPNG(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return "image/png"
	}
	return strings.ToLower(mimeType)
}
