// Package repository holds the pgx-backed repositories of the service.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
)

// ProfileRepository handles owner profile persistence
type ProfileRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: logger,
	}
}

// Upsert inserts or replaces a profile. CreatedAt is preserved on update and the
// stored timestamps are written back to profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	if strings.TrimSpace(profile.ID) == "" {
		return domain.NewInputError("id", "profile id is required", profile.ID)
	}
	if !profile.Gender.IsValid() {
		return domain.NewInputError("gender", "must be male, female or other", profile.Gender)
	}

	query := `
		INSERT INTO profiles (
			id, email, name, date_of_birth, gender, height_cm, weight_kg
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	var createdAt, updatedAt time.Time
	err := r.db.QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.Name,
		profile.DateOfBirth,
		string(profile.Gender),
		profile.HeightCm,
		profile.WeightKg,
	).Scan(&createdAt, &updatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"profile_id": profile.ID,
			"error":      err,
		}).Error("Failed to upsert profile")
		return fmt.Errorf("upserting profile: %w", err)
	}

	profile.CreatedAt = createdAt
	profile.UpdatedAt = updatedAt

	r.log.WithField("profile_id", profile.ID).Debug("Profile saved")
	return nil
}

// GetByID retrieves a profile by owner id
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, email, name, date_of_birth, gender, height_cm, weight_kg,
			   created_at, updated_at
		FROM profiles
		WHERE id = $1`

	var profile domain.Profile
	var gender string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&profile.DateOfBirth,
		&gender,
		&profile.HeightCm,
		&profile.WeightKg,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"profile_id": id,
			"error":      err,
		}).Error("Failed to get profile by ID")
		return nil, fmt.Errorf("getting profile by ID: %w", err)
	}

	profile.Gender = domain.Gender(gender)
	if profile.DateOfBirth != nil {
		dob := profile.DateOfBirth.UTC()
		profile.DateOfBirth = &dob
	}

	return &profile, nil
}

// Delete removes a profile
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	return nil
}
