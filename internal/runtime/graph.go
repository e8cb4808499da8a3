package runtime

import "github.com/utopium/chatflow/pkg/domain"

// Edge is a transition of the post-creation flow.
type Edge struct {
	From  domain.Step
	To    domain.Step
	Label string
}

// Transitions lists every edge of the post-creation flow, skips included.
func Transitions() []Edge {
	return []Edge{
		{From: domain.StepIdle, To: domain.StepAccount, Label: "create post"},
		{From: domain.StepAccount, To: domain.StepPostType},
		{From: domain.StepPostType, To: domain.StepTitle},
		{From: domain.StepTitle, To: domain.StepSubtitleChoice},
		{From: domain.StepSubtitleChoice, To: domain.StepSubtitle, Label: "yes"},
		{From: domain.StepSubtitleChoice, To: domain.StepHighlightTitle, Label: "no"},
		{From: domain.StepSubtitle, To: domain.StepHighlightTitle},
		{From: domain.StepHighlightTitle, To: domain.StepHighlightSubtitle},
		{From: domain.StepHighlightTitle, To: domain.StepBackground, Label: "subtitle skipped"},
		{From: domain.StepHighlightSubtitle, To: domain.StepBackground},
		{From: domain.StepBackground, To: domain.StepFile},
		{From: domain.StepFile, To: domain.StepConfirm, Label: "file chosen"},
		{From: domain.StepConfirm, To: domain.StepIdle, Label: "published"},
	}
}
