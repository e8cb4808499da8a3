package runner

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/utopium/chatflow/pkg/domain"
)

// LoadAttachment reads a local file into an attachment. The content type comes from
// the extension, or from sniffing the first bytes when the extension is unknown.
func LoadAttachment(path string) (*domain.Attachment, error) {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return &domain.Attachment{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// Accepts reports whether contentType matches one of the accept patterns
// ("image/*", "video/mp4"). An empty list accepts anything.
func Accepts(accept []string, contentType string) bool {
	if len(accept) == 0 {
		return true
	}
	for _, pattern := range accept {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
			continue
		}
		if strings.EqualFold(pattern, contentType) {
			return true
		}
	}
	return false
}
