package chatflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

// ErrNoBackend is reported inline when a flow completes without a configured API.
var ErrNoBackend = errors.New("no backend configured")

// invoke runs a tool call and converts every failure into an error result.
// Nothing escapes this boundary.
func (e *Engine) invoke(ctx context.Context, sessionID string, call domain.ToolCall) domain.ToolResult {
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: e.event(domain.EventToolCall, sessionID),
			ToolName:  call.Name,
		})
	}

	start := time.Now()
	output, err := e.execute(ctx, call)
	result := domain.ToolResult{ID: call.ID, Name: call.Name, Result: output}
	if err != nil {
		result.IsError = true
		result.Error = err.Error()
		e.logger.Warn("side effect failed",
			"tool", call.Name,
			"session_id", sessionID,
			"err", err,
		)
	}

	if e.hooks.OnToolReturn != nil {
		e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: e.event(domain.EventToolReturn, sessionID),
			ToolName:  call.Name,
			Duration:  time.Since(start),
			IsError:   result.IsError,
			Error:     result.Error,
		})
	}
	return result
}

func (e *Engine) execute(ctx context.Context, call domain.ToolCall) (string, error) {
	if e.backend == nil {
		return "", ErrNoBackend
	}
	if e.guard != nil {
		if err := e.guard(ctx, call); err != nil {
			return "", err
		}
	}
	return e.tools.Execute(ctx, call.Name, call.Args)
}

// registerTools binds each side-effect name to its typed implementation.
func (e *Engine) registerTools() {
	e.tools.Register(domain.ToolGenerateCaption, func(ctx context.Context, raw map[string]any) (string, error) {
		var args domain.CaptionArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return e.backend.GenerateCaption(ctx, args.Context)
	})

	e.tools.Register(domain.ToolGenerateImage, func(ctx context.Context, raw map[string]any) (string, error) {
		var args domain.ImageArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return e.generateImage(ctx, args)
	})

	e.tools.Register(domain.ToolPublishPost, func(ctx context.Context, raw map[string]any) (string, error) {
		var args domain.PublishArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return e.publishPost(ctx, args)
	})
}

// generateImage uploads the reference, if any, then asks for the image with the
// model that matches the presence of a reference.
func (e *Engine) generateImage(ctx context.Context, args domain.ImageArgs) (string, error) {
	req := ports.ImageRequest{Prompt: args.Prompt}

	if args.Reference != nil {
		key, err := e.upload(ctx, args.Reference, domain.PurposeReference)
		if err != nil {
			return "", err
		}
		req.RefImageID = key
	}

	model := e.runtime.Catalog().ModelFor(args.Reference != nil)
	req.Model = model.Model
	req.Size = model.Size

	url, err := e.backend.GenerateImage(ctx, req)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("image generation returned no url")
	}
	return url, nil
}

func (e *Engine) publishPost(ctx context.Context, args domain.PublishArgs) (string, error) {
	req := ports.PostRequest{Fields: args.Fields}

	if args.File != nil {
		key, err := e.upload(ctx, args.File, domain.PurposePost)
		if err != nil {
			return "", err
		}
		req.ObjectKey = key
	}

	return e.backend.PublishPost(ctx, req)
}

func (e *Engine) upload(ctx context.Context, file *domain.Attachment, purpose domain.FilePurpose) (string, error) {
	target, err := e.backend.RequestUploadURL(ctx, file.Name, purpose)
	if err != nil {
		return "", err
	}
	if err := e.backend.Upload(ctx, target.UploadURL, file); err != nil {
		return "", err
	}
	return target.ObjectKey, nil
}

// decodeArgs maps loosely typed tool arguments onto the typed request.
func decodeArgs(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
