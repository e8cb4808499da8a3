package domain

// ActionRequest represents a side-effect that the engine requests the host to perform.
type ActionRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Standard Action Types
const (
	// ActionRenderMessage requests the host to append a bot bubble to the transcript.
	// Payload: Message
	ActionRenderMessage = "RENDER_MESSAGE"

	// ActionRequestFile requests the host to obtain a file from the user.
	// Payload: FileRequest
	ActionRequestFile = "REQUEST_FILE"

	// ActionCallTool requests the host to execute a network side-effect.
	// Payload: ToolCall
	ActionCallTool = "CALL_TOOL"
)

// FilePurpose tells the host what a requested file is for.
type FilePurpose string

const (
	PurposePost      FilePurpose = "post"
	PurposeReference FilePurpose = "reference"
)

// FileRequest describes the file the engine is waiting for.
type FileRequest struct {
	Purpose FilePurpose `json:"purpose"`
	Prompt  string      `json:"prompt"`
	Accept  []string    `json:"accept,omitempty"`
}

// Render wraps a message into a render action.
func Render(msg Message) ActionRequest {
	return ActionRequest{Type: ActionRenderMessage, Payload: msg}
}

// Messages extracts the rendered messages from a list of actions.
func Messages(actions []ActionRequest) []Message {
	var out []Message
	for _, act := range actions {
		if act.Type != ActionRenderMessage {
			continue
		}
		if msg, ok := act.Payload.(Message); ok {
			out = append(out, msg)
		}
	}
	return out
}
