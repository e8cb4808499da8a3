package domain

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Version *int    `json:"version,omitempty"`
	Flow    *Flow   `json:"flow,omitempty"`
	Step    *string `json:"step,omitempty"`

	// Data contains only changed, added or deleted answers.
	// Deleted keys are present with an empty value.
	Data map[string]string `json:"data,omitempty"`

	// Appended holds transcript messages added since the old snapshot.
	Appended []Message `json:"appended,omitempty"`

	// Cleared is set when the transcript was rewritten (e.g. after a reset).
	// Clients should drop their copy and apply Appended from scratch.
	Cleared bool `json:"cleared,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(sessionID string, oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil || newSnap.State == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: sessionID}
	newState := newSnap.State

	var oldState *State
	if oldSnap != nil {
		oldState = oldSnap.State
	}

	if oldState == nil || oldState.Version != newState.Version {
		diff.Version = &newState.Version
	}
	if flow := newState.ActiveFlow(); oldState == nil || oldState.ActiveFlow() != flow {
		diff.Flow = &flow
	}
	if pos := newState.Position(); oldState == nil || oldState.Position() != pos || oldState.ActiveFlow() != newState.ActiveFlow() {
		diff.Step = &pos
	}

	diff.Data = diffData(oldState, newState)
	diff.Appended, diff.Cleared = diffTranscript(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffData(old, new *State) map[string]string {
	delta := make(map[string]string)
	if old == nil {
		for k, v := range new.Data {
			delta[k] = v
		}
	} else {
		for k, v := range new.Data {
			if prev, ok := old.Data[k]; !ok || prev != v {
				delta[k] = v
			}
		}
		for k := range old.Data {
			if _, ok := new.Data[k]; !ok {
				delta[k] = ""
			}
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffTranscript assumes append-only behavior unless the prefix diverges.
func diffTranscript(old, new *Snapshot) ([]Message, bool) {
	if old == nil {
		if len(new.Transcript) == 0 {
			return nil, false
		}
		return new.Transcript, false
	}

	oldLen, newLen := len(old.Transcript), len(new.Transcript)
	if newLen < oldLen || !samePrefix(old.Transcript, new.Transcript[:oldLen]) {
		return new.Transcript, true
	}
	if newLen == oldLen {
		return nil, false
	}
	return new.Transcript[oldLen:], false
}

func samePrefix(a, b []Message) bool {
	for i := range a {
		if a[i].Role != b[i].Role || a[i].Content != b[i].Content {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Version == nil &&
		d.Flow == nil &&
		d.Step == nil &&
		len(d.Data) == 0 &&
		len(d.Appended) == 0 &&
		!d.Cleared
}
