package session

import (
	"sync"
	"time"

	"github.com/parardhadhar/parardha-insight-engine/internal/index"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry. Immutable once appended; ordering is the
// chronological conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an uploaded file waiting to be indexed.
type Document struct {
	Name string
	Data []byte
}

// Session holds one conversation: its transcript, the pending upload, and
// at most one vector index built lazily on the first question.
type Session struct {
	ID string

	mu         sync.Mutex
	messages   []Message
	document   *Document
	index      *index.VectorIndex
	lastActive time.Time
}

// Append adds a transcript entry and returns it.
func (s *Session) Append(role, content string) Message {
	msg := Message{Role: role, Content: content, CreatedAt: time.Now()}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.lastActive = time.Now()
	s.mu.Unlock()
	return msg
}

// Messages returns a copy of the transcript in submission order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetDocument stores the uploaded file. A later upload replaces the stored
// bytes but an already-built index is kept: the session keeps answering
// against the first indexed document.
func (s *Session) SetDocument(doc *Document) {
	s.mu.Lock()
	s.document = doc
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Document returns the stored upload, or nil if none was uploaded yet.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetIndex stores the index if the session has none yet and reports whether
// it was stored. The index is set at most once per session.
func (s *Session) SetIndex(idx *index.VectorIndex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return false
	}
	s.index = idx
	return true
}

// Index returns the session's vector index, or nil before first indexing.
func (s *Session) Index() *index.VectorIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Touch records activity, deferring idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastActiveTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
