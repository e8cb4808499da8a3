package ports

import (
	"context"

	"github.com/utopium/chatflow/pkg/domain"
)

// UploadTarget is a pre-signed destination for a file.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ImageRequest is the body of an image generation call.
type ImageRequest struct {
	Prompt     string `json:"prompt"`
	Model      string `json:"model"`
	Size       string `json:"size"`
	RefImageID string `json:"refImageId,omitempty"`
}

// PostRequest is the body of a publish call.
type PostRequest struct {
	Fields    map[string]string `json:"fields"`
	ObjectKey string            `json:"objectKey,omitempty"`
}

// Backend performs the network side-effects of the flows.
type Backend interface {
	// GenerateCaption returns a caption written about topic.
	GenerateCaption(ctx context.Context, topic string) (string, error)

	// RequestUploadURL reserves a storage slot for a file.
	RequestUploadURL(ctx context.Context, filename string, purpose domain.FilePurpose) (UploadTarget, error)

	// Upload sends the raw bytes of a file to a pre-signed URL.
	Upload(ctx context.Context, uploadURL string, file *domain.Attachment) error

	// GenerateImage returns the URL of the generated image.
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)

	// PublishPost hands the finished post to the publisher and returns its ID.
	PublishPost(ctx context.Context, req PostRequest) (string, error)
}
