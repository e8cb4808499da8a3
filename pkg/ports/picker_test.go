package ports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

func TestDeferredPicker(t *testing.T) {
	file, err := ports.DeferredPicker.PickFile(context.Background(), domain.FileRequest{Purpose: domain.PurposePost})
	assert.Nil(t, file)
	assert.ErrorIs(t, err, domain.ErrNoFileSelected)
}

func TestFilePickerFunc(t *testing.T) {
	want := &domain.Attachment{Name: "ref.png"}
	var got domain.FileRequest
	picker := ports.FilePickerFunc(func(_ context.Context, req domain.FileRequest) (*domain.Attachment, error) {
		got = req
		return want, nil
	})

	file, err := picker.PickFile(context.Background(), domain.FileRequest{Purpose: domain.PurposeReference})
	assert.NoError(t, err)
	assert.Same(t, want, file)
	assert.Equal(t, domain.PurposeReference, got.Purpose)
}
