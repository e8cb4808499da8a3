package domain

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// Message is an immutable transcript entry.
type Message struct {
	Role         Role     `json:"role"`
	Content      string   `json:"content"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}

// BotMessage builds a bot bubble with optional quick replies.
func BotMessage(content string, replies ...string) Message {
	return Message{Role: RoleBot, Content: content, QuickReplies: replies}
}

// UserMessage builds a user bubble.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Snapshot pairs a conversation state with its transcript.
type Snapshot struct {
	State      *State    `json:"state"`
	Transcript []Message `json:"transcript"`
}

// NewSnapshot returns a default state with an empty transcript.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		State:      NewState(),
		Transcript: []Message{},
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		State:      s.State.Clone(),
		Transcript: make([]Message, len(s.Transcript)),
	}
	copy(c.Transcript, s.Transcript)
	return c
}

// Append adds messages to the transcript.
func (s *Snapshot) Append(msgs ...Message) {
	s.Transcript = append(s.Transcript, msgs...)
}
