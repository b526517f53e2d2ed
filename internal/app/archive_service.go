package app

import (
	"context"
	"log"

	"github.com/parardhadhar/parardha-insight-engine/internal/model"
	"github.com/parardhadhar/parardha-insight-engine/internal/session"
)

// TranscriptPublisher enqueues a transcript message for async persistence.
type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.TranscriptMessage) error
}

// TranscriptCache fronts archived transcript reads.
type TranscriptCache interface {
	GetTranscript(ctx context.Context, sessionID string) ([]model.TranscriptMessage, bool, error)
	SetTranscript(ctx context.Context, sessionID string, messages []model.TranscriptMessage) error
	DeleteTranscript(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// TranscriptStore reads and purges archived transcripts in durable storage.
type TranscriptStore interface {
	ListBySessionID(sessionID string, limit int) ([]model.TranscriptMessage, error)
	DeleteBySessionID(sessionID string) error
}

// ArchiveService makes transcripts durable: appended messages are published
// to the archive queue, and archived reads go through a Redis cache in front
// of MySQL. Archiving is best-effort; a broker hiccup must not fail the
// user's turn.
type ArchiveService struct {
	publisher TranscriptPublisher
	cache     TranscriptCache
	repo      TranscriptStore
}

func NewArchiveService(publisher TranscriptPublisher, cache TranscriptCache, repo TranscriptStore) *ArchiveService {
	return &ArchiveService{
		publisher: publisher,
		cache:     cache,
		repo:      repo,
	}
}

// Record publishes one transcript entry and invalidates the cached
// transcript until the worker catches up.
func (s *ArchiveService) Record(ctx context.Context, sessionID string, msg session.Message) {
	if s.cache != nil {
		_ = s.cache.MarkDirty(ctx, sessionID)
		_ = s.cache.DeleteTranscript(ctx, sessionID)
	}
	entry := model.TranscriptMessage{
		SessionID: sessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Printf("archive publish failed for session %s: %v", sessionID, err)
	}
}

// GetTranscript returns the archived transcript for a session, serving from
// cache when it is fresh.
func (s *ArchiveService) GetTranscript(ctx context.Context, sessionID string, limit int) ([]model.TranscriptMessage, error) {
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, sessionID); err == nil && !dirty {
			if cached, hit, err := s.cache.GetTranscript(ctx, sessionID); err == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.repo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, sessionID); err == nil && !dirty {
			_ = s.cache.SetTranscript(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// DeleteTranscript purges a session's archived transcript from storage and
// cache.
func (s *ArchiveService) DeleteTranscript(ctx context.Context, sessionID string) error {
	if s.cache != nil {
		_ = s.cache.DeleteTranscript(ctx, sessionID)
	}
	return s.repo.DeleteBySessionID(sessionID)
}
