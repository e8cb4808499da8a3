package runtime

import "strings"

// Intent is a top-level request recognised while the conversation is idle.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentImage
	IntentPost
	IntentCaption
)

// Quick-reply labels of the idle menu. Clicking one is the same as typing it.
const (
	MenuCreateImage   = "Create Image"
	MenuCreatePost    = "Create Post"
	MenuCreateCaption = "Create Instagram Post Title & Description"
)

var intentPhrases = map[Intent][]string{
	IntentImage:   {"create image", "make image", "generate image"},
	IntentPost:    {"create post", "make a post", "create a post"},
	IntentCaption: {"create instagram post title & description", "ig content"},
}

// MenuReplies returns the three idle choices in display order.
func MenuReplies() []string {
	return []string{MenuCreateImage, MenuCreatePost, MenuCreateCaption}
}

// MatchIntent lower-cases the input and looks it up in the fixed phrase sets.
func MatchIntent(text string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, intent := range []Intent{IntentImage, IntentPost, IntentCaption} {
		for _, phrase := range intentPhrases[intent] {
			if normalized == phrase {
				return intent
			}
		}
	}
	return IntentUnknown
}

func isYes(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "y")
}
