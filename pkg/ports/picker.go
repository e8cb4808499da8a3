package ports

import (
	"context"

	"github.com/utopium/chatflow/pkg/domain"
)

// FilePicker asks the user for a file.
//
// Implementations return domain.ErrNoFileSelected when no file is available right
// away. The conversation then waits until the file is attached later.
type FilePicker interface {
	PickFile(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error)
}

// FilePickerFunc adapts a function to the FilePicker interface.
type FilePickerFunc func(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error)

// PickFile calls f(ctx, req).
func (f FilePickerFunc) PickFile(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error) {
	return f(ctx, req)
}

// DeferredPicker never has a file ready. Hosts that receive files out-of-band
// (HTTP uploads, MCP) use it.
var DeferredPicker FilePicker = FilePickerFunc(func(context.Context, domain.FileRequest) (*domain.Attachment, error) {
	return nil, domain.ErrNoFileSelected
})
