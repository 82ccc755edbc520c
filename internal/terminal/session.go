package terminal

// Session holds per-terminal-session interaction state: the recall
// buffer (arrow-key history) and the working directory hint shown in
// the prompt. The recall buffer is independent from the persisted
// command history on the server.
type Session struct {
	ID          string
	ClusterName string

	// PathHint is the last known working directory, with the user's
	// home collapsed to "~". Empty until a cd succeeds.
	PathHint string

	recall []string
	cursor int // in [0, len(recall)]; len means "past the newest entry"
}

func NewSession(id, clusterName string) *Session {
	return &Session{ID: id, ClusterName: clusterName}
}

// Remember appends a submitted command to the recall buffer unless it
// repeats the most recent entry, then resets the cursor past the end.
func (s *Session) Remember(command string) {
	if n := len(s.recall); n == 0 || s.recall[n-1] != command {
		s.recall = append(s.recall, command)
	}
	s.cursor = len(s.recall)
}

// RecallOlder moves one step toward the oldest entry and returns the
// command at the cursor. At the oldest entry it stays put. With an
// empty buffer it returns "".
func (s *Session) RecallOlder() string {
	if len(s.recall) == 0 {
		return ""
	}
	if s.cursor > 0 {
		s.cursor--
	}
	return s.recall[s.cursor]
}

// RecallNewer moves one step toward the newest entry. Stepping past
// the newest entry parks the cursor there and returns "" so the input
// line clears.
func (s *Session) RecallNewer() string {
	if s.cursor < len(s.recall)-1 {
		s.cursor++
		return s.recall[s.cursor]
	}
	s.cursor = len(s.recall)
	return ""
}

// RecallLen reports how many distinct commands are recallable.
func (s *Session) RecallLen() int {
	return len(s.recall)
}
