package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Agreement kinds recorded during onboarding.
const (
	AgreementOPRASubscriber             = "opra_subscriber"
	AgreementNonProfessionalDeclaration = "nonprofessional_declaration"
)

// Profile holds the "additional data" onboarding step.
type Profile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	Phone          string    `gorm:"size:40" json:"phone"`
	AddressLine    string    `gorm:"size:255" json:"address_line"`
	City           string    `gorm:"size:100" json:"city"`
	Country        string    `gorm:"size:2;not null" json:"country"`
	DateOfBirth    time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	IsProfessional bool      `gorm:"not null;default:false" json:"is_professional"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Questionnaire stores a user's onboarding answers. Written once.
type Questionnaire struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Answers   datatypes.JSON `gorm:"type:jsonb;not null" json:"answers"`
	CreatedAt time.Time      `json:"created_at"`
}

// DataAgreement records a signed market-data agreement.
type DataAgreement struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_agreements_user_kind" json:"user_id"`
	Kind       string    `gorm:"size:50;not null;uniqueIndex:idx_agreements_user_kind" json:"kind"`
	Version    string    `gorm:"size:20;not null" json:"version"`
	SignerName string    `gorm:"size:200;not null" json:"signer_name"`
	SignedAt   time.Time `gorm:"not null" json:"signed_at"`
	ClientIP   string    `gorm:"size:64" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
