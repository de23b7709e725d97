package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/models"
	"github.com/google/uuid"
)

// ProfileRepository persists one profile row per user
type ProfileRepository struct {
	db  *DB
	now func() time.Time
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db, now: time.Now}
}

// UpsertProfile writes the full profile, replacing any existing row for the user
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p models.UserProfile) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("failed to upsert profile: missing user id")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, title, email, phone, location, linkedin, portfolio,
			base_resume_text, daily_availability, voice_id, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			location = EXCLUDED.location,
			linkedin = EXCLUDED.linkedin,
			portfolio = EXCLUDED.portfolio,
			base_resume_text = EXCLUDED.base_resume_text,
			daily_availability = EXCLUDED.daily_availability,
			voice_id = EXCLUDED.voice_id,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
	`, p.UserID.String(), p.Name, p.Title, p.Email, p.Phone, p.Location, p.LinkedIn, p.Portfolio,
		p.BaseResumeText, p.DailyAvailability, p.VoiceID, p.AvatarURL, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the stored profile for userID
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, title, email, phone, location, linkedin, portfolio,
			base_resume_text, daily_availability, voice_id, avatar_url
		FROM profiles WHERE user_id = $1
	`, userID.String()).Scan(
		&p.UserID,
		&p.Name,
		&p.Title,
		&p.Email,
		&p.Phone,
		&p.Location,
		&p.LinkedIn,
		&p.Portfolio,
		&p.BaseResumeText,
		&p.DailyAvailability,
		&p.VoiceID,
		&p.AvatarURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}
