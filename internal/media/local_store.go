package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spec-kit/matchmaking-service/internal/config"
	apperrors "github.com/spec-kit/matchmaking-service/pkg/util/errorutil"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrUnsupportedType = apperrors.NewDomainError(apperrors.CodeValidation, "UNSUPPORTED_IMAGE_TYPE",
		"only JPEG, PNG, GIF and WebP images are allowed", http.StatusBadRequest, nil)
	ErrFileTooLarge = apperrors.NewDomainError(apperrors.CodeValidation, "FILE_TOO_LARGE",
		"image is too large", http.StatusBadRequest, nil)
)

// LocalStore writes profile photos to a directory served as static files.
type LocalStore struct {
	dir      string
	prefix   string
	maxBytes int64
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(cfg config.MediaConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: cfg.UploadDir, prefix: cfg.PublicPrefix, maxBytes: cfg.MaxUploadBytes}, nil
}

// Save stores r under a random name and returns its public path. The type is
// sniffed from the content; the client's declared type is not trusted.
func (s *LocalStore) Save(ctx context.Context, accountID, filename, _ string, size int64, r io.Reader) (string, error) {
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", ErrFileTooLarge.WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	ext, ok := allowedTypes[detectType(head)]
	if !ok {
		return "", ErrUnsupportedType.WithDetails(map[string]any{"filename": filepath.Base(filename)})
	}

	name := accountID + "_" + uuid.NewString() + ext
	dest := filepath.Join(s.dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	limit := s.maxBytes
	if limit <= 0 {
		limit = math.MaxInt64 - 1
	}
	written, err := io.Copy(out, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), limit+1))
	closeErr := out.Close()
	if err == nil && written > limit {
		err = ErrFileTooLarge.WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return path.Join(s.prefix, name), nil
}

func detectType(head []byte) string {
	// Older sniffers report WebP as octet-stream.
	if len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WEBP" {
		return "image/webp"
	}
	return http.DetectContentType(head)
}
