package domain

// Tool names understood by the host.
const (
	ToolGenerateCaption = "generate_caption"
	ToolGenerateImage   = "generate_image"
	ToolPublishPost     = "publish_post"
)

// ToolCall represents a request from the Engine to the Host to perform a side-effect.
type ToolCall struct {
	ID             string         `json:"id" mapstructure:"id"`
	Name           string         `json:"name" mapstructure:"name"`
	Args           map[string]any `json:"args,omitempty" mapstructure:"args"`
	IdempotencyKey string         `json:"idempotency_key,omitempty" mapstructure:"idempotency_key"`
}

// ToolResult represents the output of a side-effect returned by the Host.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Name    string `json:"name"`
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CaptionArgs are the arguments of ToolGenerateCaption.
type CaptionArgs struct {
	Context string `mapstructure:"context"`
}

// ImageArgs are the arguments of ToolGenerateImage.
type ImageArgs struct {
	Prompt    string      `mapstructure:"prompt"`
	Reference *Attachment `mapstructure:"reference"`
}

// PublishArgs are the arguments of ToolPublishPost.
type PublishArgs struct {
	Fields map[string]string `mapstructure:"fields"`
	File   *Attachment       `mapstructure:"file"`
}
