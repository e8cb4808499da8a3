package runtime

import (
	"fmt"
	"strings"

	"github.com/utopium/chatflow/pkg/domain"
)

// Bot prompts.
const (
	PromptMenu         = "What can I help you with?"
	PromptAnythingElse = "Anything else I can help you with?"

	PromptAccount           = "What account are we posting to?"
	PromptPostType          = "What type of post is this?"
	PromptTitle             = "What's the title?"
	PromptSubtitleChoice    = "Do you want a subtitle?"
	PromptSubtitle          = "What's the subtitle? (type skip to leave it out)"
	PromptHighlightTitle    = "Comma-separated highlight words for title."
	PromptHighlightSubtitle = "Comma-separated highlight words for subtitle."
	PromptBackground        = "What kind of background?"
	PromptFile              = "Upload the background file."
	PromptSending           = "Sending your post..."
	PromptStillSending      = "Hang on, your post is still being sent."
	PromptPostSent          = "Post sent!"

	PromptImage           = "Describe the image you want."
	PromptAskReference    = "Attach a reference image?"
	PromptReferenceFile   = "Upload your reference image."
	PromptGeneratingImage = "Generating your image..."

	PromptCaption           = "Tell me about the post and I'll write an Instagram title & description."
	PromptGeneratingCaption = "Writing your caption..."

	PromptStillWorking = "Still working on it, one moment."
)

// ErrorPrefix starts every inline failure bubble.
const ErrorPrefix = "Error: "

var yesNo = []string{"yes", "no"}

// enter moves the post flow to step and returns the prompt for it.
func (e *Engine) enter(state *domain.State, step domain.Step) []domain.ActionRequest {
	state.Step = step

	switch step {
	case domain.StepAccount:
		return say(PromptAccount, e.catalog.Accounts...)
	case domain.StepPostType:
		return say(PromptPostType, e.catalog.PostTypes...)
	case domain.StepTitle:
		return say(PromptTitle)
	case domain.StepSubtitleChoice:
		return say(PromptSubtitleChoice, yesNo...)
	case domain.StepSubtitle:
		return say(PromptSubtitle)
	case domain.StepHighlightTitle:
		return say(PromptHighlightTitle)
	case domain.StepHighlightSubtitle:
		return say(PromptHighlightSubtitle)
	case domain.StepBackground:
		return say(PromptBackground, e.catalog.Backgrounds...)
	case domain.StepFile:
		return []domain.ActionRequest{
			domain.Render(domain.BotMessage(PromptFile)),
			{Type: domain.ActionRequestFile, Payload: postFileRequest(state)},
		}
	case domain.StepConfirm:
		state.AwaitYes = true
		return []domain.ActionRequest{
			domain.Render(domain.BotMessage(Summary(state))),
			domain.Render(domain.BotMessage(PromptSending)),
			{Type: domain.ActionCallTool, Payload: publishCall(state)},
		}
	}
	return nil
}

func say(prompt string, replies ...string) []domain.ActionRequest {
	return []domain.ActionRequest{domain.Render(domain.BotMessage(prompt, replies...))}
}

func postFileRequest(state *domain.State) domain.FileRequest {
	return domain.FileRequest{
		Purpose: domain.PurposePost,
		Prompt:  PromptFile,
		Accept:  acceptFor(state.Data[domain.FieldBackground]),
	}
}

func referenceFileRequest() domain.FileRequest {
	return domain.FileRequest{
		Purpose: domain.PurposeReference,
		Prompt:  PromptReferenceFile,
		Accept:  []string{"image/*"},
	}
}

func acceptFor(background string) []string {
	switch strings.ToLower(strings.TrimSpace(background)) {
	case "image":
		return []string{"image/*"}
	case "video":
		return []string{"video/*"}
	}
	return []string{"image/*", "video/*"}
}

// Summary renders the collected post fields as markdown.
func Summary(state *domain.State) string {
	var sb strings.Builder
	sb.WriteString("Here's your post:\n\n")
	rows := []struct{ label, key string }{
		{"Account", domain.FieldAccount},
		{"Type", domain.FieldArtifact},
		{"Title", domain.FieldTitle},
		{"Subtitle", domain.FieldSubtitle},
		{"Title highlights", domain.FieldHighlightTitle},
		{"Subtitle highlights", domain.FieldHighlightSubtitle},
		{"Background", domain.FieldBackground},
	}
	for _, row := range rows {
		value, ok := state.Data[row.key]
		if !ok || value == "" {
			continue
		}
		fmt.Fprintf(&sb, "- **%s:** %s\n", row.label, value)
	}
	if state.File != nil {
		fmt.Fprintf(&sb, "- **File:** %s\n", state.File.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func publishCall(state *domain.State) domain.ToolCall {
	fields := make(map[string]string, len(state.Data))
	for k, v := range state.Data {
		fields[k] = v
	}
	return newCall(state, domain.ToolPublishPost, map[string]any{
		"fields": fields,
		"file":   state.File,
	})
}

func newCall(state *domain.State, name string, args map[string]any) domain.ToolCall {
	id := fmt.Sprintf("%s-%d", name, state.Version)
	return domain.ToolCall{
		ID:             id,
		Name:           name,
		Args:           args,
		IdempotencyKey: id,
	}
}
