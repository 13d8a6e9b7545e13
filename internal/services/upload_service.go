package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes caps admin uploads at 5MB.
const MaxUploadBytes = 5 * 1024 * 1024

// allowedUploads maps permitted extensions to the MIME types they must carry.
var allowedUploads = map[string][]string{
	"png":  {"image/png"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"pdf":  {"application/pdf"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
}

// UploadService stores admin-uploaded stimulus assets (images, consent PDFs)
// under a local directory and hands back the public path.
type UploadService struct {
	dir   string
	idGen func() string
}

func NewUploadService(dir string) *UploadService {
	return &UploadService{dir: dir, idGen: uuid.NewString}
}

// ValidateUpload checks extension, MIME type and size before any bytes are
// written. The extension drives the check; a MIME type that does not match
// the extension is rejected even when both are individually allowed.
func ValidateUpload(filename, mimeType string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	mimes, ok := allowedUploads[ext]
	if ext == "" || !ok {
		return NewInvalidError("file type not allowed; use: png, jpg, jpeg, pdf, docx")
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	matched := false
	for _, m := range mimes {
		if m == mt {
			matched = true
			break
		}
	}
	if !matched {
		return NewInvalidError("file MIME type does not match its extension")
	}
	if size > MaxUploadBytes {
		return NewInvalidError("file too large; maximum 5MB")
	}
	if size <= 0 {
		return NewInvalidError("empty file")
	}
	return nil
}

// Store validates and writes the upload, returning the stored file name. The
// original name only contributes its extension; the stored name is random.
func (s *UploadService) Store(filename, mimeType string, data []byte) (string, error) {
	if err := ValidateUpload(filename, mimeType, int64(len(data))); err != nil {
		return "", err
	}
	if s.dir == "" {
		return "", NewInvalidError("uploads are not configured")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	name := strings.ReplaceAll(s.idGen(), "-", "") + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}
