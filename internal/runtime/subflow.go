package runtime

import "github.com/utopium/chatflow/pkg/domain"

// handleImage advances the image-generation sub-flow.
func (e *Engine) handleImage(state *domain.State, input string) []domain.ActionRequest {
	switch state.ImgStep {
	case domain.ImagePrompt:
		state.ImgPrompt = input
		state.ImgStep = domain.ImageAskRef
		return say(PromptAskReference, yesNo...)

	case domain.ImageAskRef:
		if isYes(input) {
			state.ImgStep = domain.ImageFile
			return requestReference()
		}
		state.RefFile = nil
		state.ImgStep = domain.ImageGenerate
		return e.generateImage(state)

	case domain.ImageFile:
		return requestReference()
	}

	// ImageGenerate: the side-effect is in flight.
	return say(PromptStillWorking)
}

func requestReference() []domain.ActionRequest {
	return []domain.ActionRequest{
		domain.Render(domain.BotMessage(PromptReferenceFile)),
		{Type: domain.ActionRequestFile, Payload: referenceFileRequest()},
	}
}

func (e *Engine) generateImage(state *domain.State) []domain.ActionRequest {
	args := map[string]any{"prompt": state.ImgPrompt}
	if state.RefFile != nil {
		args["reference"] = state.RefFile
	}
	return []domain.ActionRequest{
		domain.Render(domain.BotMessage(PromptGeneratingImage)),
		{Type: domain.ActionCallTool, Payload: newCall(state, domain.ToolGenerateImage, args)},
	}
}

// handleCaption advances the caption sub-flow. The generating step is left only
// when the side-effect completes.
func (e *Engine) handleCaption(state *domain.State, input string) []domain.ActionRequest {
	if state.GPTStep != domain.CaptionContext {
		return say(PromptStillWorking)
	}

	state.GPTStep = domain.CaptionGenerating
	return []domain.ActionRequest{
		domain.Render(domain.BotMessage(PromptGeneratingCaption)),
		{
			Type:    domain.ActionCallTool,
			Payload: newCall(state, domain.ToolGenerateCaption, map[string]any{"context": input}),
		},
	}
}
