// Package conversation maps participant pairs to their single conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

// maxCreateAttempts bounds the lookup/insert loop under racing creators.
const maxCreateAttempts = 3

// Directory resolves and creates conversations.
type Directory struct {
	db *gorm.DB
}

// NewDirectory returns a Directory over db.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// GetOrCreate returns the conversation between a and b, creating it when
// none exists. Concurrent callers for the same pair get the same row: the
// loser of the insert race sees a unique violation on pair_key and re-reads.
// Callers validate that both identities exist.
func (d *Directory) GetOrCreate(ctx context.Context, a, b string) (*models.Conversation, error) {
	if a == "" || b == "" {
		return nil, apperr.Validationf("Both participants are required")
	}
	if a == b {
		return nil, apperr.Validationf("Cannot start a conversation with yourself")
	}
	key := models.PairKey(a, b)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		conv, err := d.findByKey(ctx, key)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation: lookup %s: %w", key, err)
		}

		first, second := models.SortedPair(a, b)
		conv = &models.Conversation{
			ParticipantA:  first,
			ParticipantB:  second,
			PairKey:       key,
			LastMessageAt: time.Now(),
		}
		err = d.db.WithContext(ctx).Create(conv).Error
		if err == nil {
			return conv, nil
		}
		if !db.IsDuplicateKey(err) {
			return nil, fmt.Errorf("conversation: create %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("conversation: create %s: gave up after %d attempts", key, maxCreateAttempts)
}

func (d *Directory) findByKey(ctx context.Context, key string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := d.db.WithContext(ctx).Where("pair_key = ?", key).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// Get loads a conversation by id.
func (d *Directory) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("Conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: get %s: %w", id, err)
	}
	return &conv, nil
}

// Attach points the conversation at appointmentID, the pair's most recent
// appointment.
func (d *Directory) Attach(ctx context.Context, tx *gorm.DB, convID, appointmentID string) error {
	if tx == nil {
		tx = d.db
	}
	err := tx.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", convID).
		Update("appointment_id", appointmentID).Error
	if err != nil {
		return fmt.Errorf("conversation: attach %s to %s: %w", appointmentID, convID, err)
	}
	return nil
}

// IsParticipant reports whether userID belongs to conversation convID. A
// missing conversation yields NotFound.
func (d *Directory) IsParticipant(ctx context.Context, convID, userID string) (bool, error) {
	conv, err := d.Get(ctx, convID)
	if err != nil {
		return false, err
	}
	return conv.Has(userID), nil
}

// ListFor returns userID's conversations, most recently active first.
func (d *Directory) ListFor(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := d.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("conversation: list for %s: %w", userID, err)
	}
	return convs, nil
}
