// Package transcript holds the conversation log of a voice call: the ordered
// list of final utterances reported by the call transport.
//
// Partial (interim) transcripts are never stored. Speaker labels are kept
// verbatim, so roles other than assistant and user survive unchanged.
package transcript

import (
	"sync"

	"github.com/MrWong99/prepwise/pkg/transport"
)

// Well-known speaker labels.
const (
	SpeakerAssistant = "assistant"
	SpeakerUser      = "user"
)

// Utterance is one finished turn of the conversation.
type Utterance struct {
	Speaker string `json:"role" firestore:"role"`
	Text    string `json:"content" firestore:"content"`
}

// Log is an append-only, ordered transcript. The zero value is an empty log.
// Log is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Utterance
}

// Append adds u to the end of the log.
func (l *Log) Append(u Utterance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, u)
}

// AppendMessage appends m if it is a final transcript and reports whether it
// did. Other message types and partial transcripts are ignored.
func (l *Log) AppendMessage(m transport.Message) bool {
	if !m.IsFinalTranscript() {
		return false
	}
	l.Append(Utterance{Speaker: m.Role, Text: m.Transcript})
	return true
}

// Snapshot returns a copy of the log in append order.
func (l *Log) Snapshot() []Utterance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Utterance, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of utterances.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset empties the log.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// TextsBy returns the texts of all utterances by speaker, in order.
func TextsBy(utterances []Utterance, speaker string) []string {
	var out []string
	for _, u := range utterances {
		if u.Speaker == speaker {
			out = append(out, u.Text)
		}
	}
	return out
}
