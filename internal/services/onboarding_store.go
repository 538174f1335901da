package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOnboardingStore is the Postgres-backed OnboardingStore.
type GormOnboardingStore struct {
	db *gorm.DB
}

func NewGormOnboardingStore(db *gorm.DB) *GormOnboardingStore {
	return &GormOnboardingStore{db: db}
}

func (s *GormOnboardingStore) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).Take(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (s *GormOnboardingStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "phone", "address_line", "city",
			"country", "date_of_birth", "is_professional", "updated_at",
		}),
	}).Create(profile).Error
}

func (s *GormOnboardingStore) HasQuestionnaire(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Questionnaire{}).Scopes(session.ForUser(userID)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormOnboardingStore) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	err := s.db.WithContext(ctx).Create(q).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrQuestionnaireExists
	}
	return err
}

func (s *GormOnboardingStore) AgreementKinds(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var kinds []string
	err := s.db.WithContext(ctx).Model(&models.DataAgreement{}).
		Scopes(session.ForUser(userID)).
		Pluck("kind", &kinds).Error
	return kinds, err
}

func (s *GormOnboardingStore) SaveAgreements(ctx context.Context, agreements []models.DataAgreement) error {
	if len(agreements) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "signer_name", "signed_at", "client_ip"}),
	}).Create(&agreements).Error
}
