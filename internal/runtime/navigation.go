package runtime

import (
	"github.com/utopium/chatflow/pkg/domain"
)

// handleIntent interprets input while no flow is active.
func (e *Engine) handleIntent(state *domain.State, input string) []domain.ActionRequest {
	switch MatchIntent(input) {
	case IntentImage:
		state.ImgMode = true
		state.ImgStep = domain.ImagePrompt
		state.ImgPrompt = ""
		state.RefFile = nil
		return []domain.ActionRequest{domain.Render(domain.BotMessage(PromptImage))}

	case IntentPost:
		state.Data = make(map[string]string)
		state.File = nil
		state.SkipHLSub = false
		state.AwaitYes = false
		return e.enter(state, domain.StepAccount)

	case IntentCaption:
		state.GPTMode = true
		state.GPTStep = domain.CaptionContext
		return []domain.ActionRequest{domain.Render(domain.BotMessage(PromptCaption))}
	}

	return []domain.ActionRequest{e.menu(PromptMenu)}
}

// handlePost records the answer to the current post-creation question and moves on.
// Skips are direct edges: a declined subtitle lands on the highlight-title question,
// and a pending SkipHLSub jumps from highlight-title straight to the background.
func (e *Engine) handlePost(state *domain.State, input string) []domain.ActionRequest {
	switch state.Step {
	case domain.StepAccount:
		state.Data[domain.FieldAccount] = input
		return e.enter(state, domain.StepPostType)

	case domain.StepPostType:
		state.Data[domain.FieldArtifact] = input
		return e.enter(state, domain.StepTitle)

	case domain.StepTitle:
		state.Data[domain.FieldTitle] = input
		return e.enter(state, domain.StepSubtitleChoice)

	case domain.StepSubtitleChoice:
		if !isYes(input) {
			state.Data[domain.FieldSubtitle] = domain.SkipValue
			state.SkipHLSub = true
			return e.enter(state, domain.StepHighlightTitle)
		}
		return e.enter(state, domain.StepSubtitle)

	case domain.StepSubtitle:
		if input == domain.SkipValue {
			state.Data[domain.FieldSubtitle] = domain.SkipValue
			state.SkipHLSub = true
		} else {
			state.Data[domain.FieldSubtitle] = input
		}
		return e.enter(state, domain.StepHighlightTitle)

	case domain.StepHighlightTitle:
		state.Data[domain.FieldHighlightTitle] = input
		if state.SkipHLSub {
			state.SkipHLSub = false
			return e.enter(state, domain.StepBackground)
		}
		return e.enter(state, domain.StepHighlightSubtitle)

	case domain.StepHighlightSubtitle:
		state.Data[domain.FieldHighlightSubtitle] = input
		return e.enter(state, domain.StepBackground)

	case domain.StepBackground:
		state.Data[domain.FieldBackground] = input
		return e.enter(state, domain.StepFile)

	case domain.StepFile:
		// Files only arrive through AcceptFile; typed text re-opens the chooser.
		return e.enter(state, domain.StepFile)

	case domain.StepConfirm:
		return []domain.ActionRequest{domain.Render(domain.BotMessage(PromptStillSending))}
	}

	// Unknown step (e.g. a state written by a newer version): start over.
	state.Step = domain.StepIdle
	return []domain.ActionRequest{e.menu(PromptMenu)}
}
