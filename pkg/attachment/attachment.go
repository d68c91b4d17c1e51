package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

var (
	// ErrTooLarge indicates the payload exceeded the configured limit.
	ErrTooLarge = errors.New("attachment exceeds maximum allowed size")
	// ErrTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrTypeNotAllowed = errors.New("attachment type not allowed")
)

// Config contains credentials for the Cloudinary-backed store.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	MaxSizeMB int
}

// Store keeps submission attachments in Cloudinary and hands back opaque
// secure URLs. Callers persist the URL only; bytes never touch the database.
type Store struct {
	client  *cloudinary.Cloudinary
	folder  string
	maxSize int64
	logger  zerolog.Logger
}

// New constructs a Store instance.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	maxSizeMB := cfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}

	return &Store{
		client:  cld,
		folder:  cfg.Folder,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "attachment_store").Logger(),
	}, nil
}

// Upload validates the payload and sends it to Cloudinary, returning the
// secure URL reference.
func (s *Store) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(reader, s.maxSize+1)); err != nil {
		return "", err
	}
	if int64(buf.Len()) > s.maxSize {
		return "", ErrTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !isAllowedType(mime.String()) {
		return "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, mime.String())
	}

	params := uploader.UploadParams{
		Folder:       strings.Trim(s.folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(buf.Bytes()), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Str("mime", mime.String()).Msg("attachment stored")

	return result.SecureURL, nil
}

func isAllowedType(m string) bool {
	lower := strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(lower, "image/") || strings.HasPrefix(lower, "text/") {
		return true
	}
	switch lower {
	case "application/pdf", "application/zip", "application/x-zip-compressed":
		return true
	default:
		return false
	}
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("attachment-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d", base, time.Now().Unix())
}
