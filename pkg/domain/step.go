package domain

// Step identifies the position inside the post-creation flow.
// StepIdle means the engine is waiting for a top-level intent.
type Step string

const (
	StepIdle              Step = "idle"
	StepAccount           Step = "account"
	StepPostType          Step = "post_type"
	StepTitle             Step = "title"
	StepSubtitleChoice    Step = "subtitle_choice"
	StepSubtitle          Step = "subtitle"
	StepHighlightTitle    Step = "highlight_title"
	StepHighlightSubtitle Step = "highlight_subtitle"
	StepBackground        Step = "background"
	StepFile              Step = "file"
	StepConfirm           Step = "confirm"
)

// PostSteps lists the post-creation flow in prompt order.
var PostSteps = []Step{
	StepAccount,
	StepPostType,
	StepTitle,
	StepSubtitleChoice,
	StepSubtitle,
	StepHighlightTitle,
	StepHighlightSubtitle,
	StepBackground,
	StepFile,
	StepConfirm,
}

// Index returns the legacy integer position of the step (-1 for idle).
// Unknown steps also map to -1.
func (s Step) Index() int {
	for i, step := range PostSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// StepAt is the inverse of Index.
func StepAt(index int) Step {
	if index < 0 || index >= len(PostSteps) {
		return StepIdle
	}
	return PostSteps[index]
}

// ImageStep is the position inside the image-generation sub-flow.
type ImageStep int

const (
	ImagePrompt ImageStep = iota
	ImageAskRef
	ImageFile
	ImageGenerate
)

// CaptionStep is the position inside the caption sub-flow.
type CaptionStep int

const (
	CaptionContext CaptionStep = iota
	CaptionGenerating
)

// Flow names the conversation currently driving input routing.
type Flow string

const (
	FlowIdle    Flow = "idle"
	FlowPost    Flow = "post"
	FlowCaption Flow = "caption"
	FlowImage   Flow = "image"
)
