package domain

// Field names collected by the post-creation flow.
const (
	FieldAccount           = "account"
	FieldArtifact          = "artifact"
	FieldTitle             = "title"
	FieldSubtitle          = "subtitle"
	FieldHighlightTitle    = "hlTitle"
	FieldHighlightSubtitle = "hlSub"
	FieldBackground        = "bgType"
)

// SkipValue marks a declined optional answer.
const SkipValue = "skip"

// Attachment is a user-selected file. The engine treats it as opaque.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// Size returns the payload length in bytes.
func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// State represents the current snapshot of a conversation.
type State struct {
	// Version increases by one on every transition.
	Version int `json:"version"`

	// Step is the position in the post-creation flow (StepIdle when no flow runs).
	Step Step `json:"step"`

	// Data holds the answers collected by the post-creation flow.
	Data map[string]string `json:"data"`

	// File is the media attached to the post.
	File *Attachment `json:"file,omitempty"`

	// GPTMode and ImgMode select a sub-flow. They take priority over Step.
	GPTMode bool `json:"gptMode"`
	ImgMode bool `json:"imgMode"`

	GPTStep CaptionStep `json:"gptStep"`
	ImgStep ImageStep   `json:"imgStep"`

	ImgPrompt string      `json:"imgPrompt"`
	RefFile   *Attachment `json:"refFile,omitempty"`

	// SkipHLSub is set when the subtitle was declined so the highlight-subtitle
	// question is skipped as well.
	SkipHLSub bool `json:"skipHLSub"`

	HasGreeted bool `json:"hasGreeted"`

	// Reserved. Persisted for compatibility; only Editing and AwaitYes are ever written.
	RestartPending bool `json:"restartPending"`
	AwaitYes       bool `json:"awaitYes"`
	ChangePending  bool `json:"changePending"`
	Editing        bool `json:"editing"`
}

// NewState creates a state with every field at its default.
func NewState() *State {
	return &State{
		Step: StepIdle,
		Data: make(map[string]string),
	}
}

// ActiveFlow reports which flow routes the next input.
// Mode flags take priority over the post flow.
func (s *State) ActiveFlow() Flow {
	switch {
	case s.ImgMode:
		return FlowImage
	case s.GPTMode:
		return FlowCaption
	case s.Step != StepIdle && s.Step != "":
		return FlowPost
	default:
		return FlowIdle
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	c.File = s.File.clone()
	c.RefFile = s.RefFile.clone()
	return &c
}

func (a *Attachment) clone() *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	return &c
}

// Normalize repairs fields a decoded state may be missing.
func (s *State) Normalize() {
	if s.Step == "" {
		s.Step = StepIdle
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
}
