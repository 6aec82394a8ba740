package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"linguachat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert inserts the session or updates its name and language. Timestamps
// are server-assigned: created_at on insert, last_accessed on every write.
func (r *SessionRepository) Upsert(session *model.Session) error {
	existing, err := r.Get(session.SessionID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := r.db.Create(session).Error; err != nil {
			return fmt.Errorf("create session failed: %w", err)
		}
		return nil
	}
	updates := map[string]interface{}{
		"name":          session.Name,
		"language":      session.Language,
		"last_accessed": time.Now(),
	}
	if err := r.db.Model(&model.Session{}).Where("session_id = ?", session.SessionID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update session failed: %w", err)
	}
	return nil
}

// EnsureExists creates a minimally-populated session row when none exists.
// Used by the persistence worker so a message never references a missing
// session.
func (r *SessionRepository) EnsureExists(sessionID, name string) error {
	existing, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	session := &model.Session{
		SessionID: sessionID,
		Name:      name,
		Language:  "English",
	}
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// ListSince returns sessions accessed at or after the given time, most
// recently accessed first.
func (r *SessionRepository) ListSince(since time.Time) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Where("last_accessed >= ?", since).Order("last_accessed DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// Touch bumps last_accessed without changing anything else.
func (r *SessionRepository) Touch(sessionID string) error {
	if err := r.db.Model(&model.Session{}).Where("session_id = ?", sessionID).Update("last_accessed", time.Now()).Error; err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(sessionID string) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
