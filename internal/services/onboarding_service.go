package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// Onboarding step paths, in order.
const (
	StepAdditionalData = "/register/additional-data"
	StepQuestionnaire  = "/register/questionnaire"
	StepAgreements     = "/register/opra-agreements"
)

// AgreementVersion is the agreement text revision users sign.
const AgreementVersion = "2024-01"

var (
	ErrFirstNameRequired   = errors.New("first name is required")
	ErrLastNameRequired    = errors.New("last name is required")
	ErrCountryInvalid      = errors.New("country must be a two-letter ISO code")
	ErrDateOfBirthInvalid  = errors.New("date of birth must be YYYY-MM-DD")
	ErrUnderage            = errors.New("you must be at least 18 years old")
	ErrAnswersInvalid      = errors.New("invalid questionnaire answers")
	ErrQuestionnaireExists = errors.New("questionnaire already submitted")
	ErrSignerNameRequired  = errors.New("signer name is required")
	ErrUnknownAgreement    = errors.New("unknown agreement")
	ErrAgreementMissing    = errors.New("required agreement not signed")
)

// StepOutOfOrderError is returned when a step is submitted before the steps it depends on.
type StepOutOfOrderError struct {
	Next string
}

func (e *StepOutOfOrderError) Error() string {
	return "previous onboarding step not completed"
}

const questionnaireSchema = `{
  "type": "object",
  "required": ["tradingExperience", "optionsKnowledge", "riskTolerance", "usesDataForBusiness"],
  "properties": {
    "tradingExperience": {"type": "string", "enum": ["none", "lt1", "1to3", "3to5", "gt5"]},
    "optionsKnowledge": {"type": "string", "enum": ["none", "basic", "intermediate", "advanced"]},
    "riskTolerance": {"type": "string", "enum": ["low", "medium", "high"]},
    "investmentObjectives": {
      "type": "array",
      "items": {"type": "string", "enum": ["income", "growth", "speculation", "hedging", "preservation"]},
      "uniqueItems": true
    },
    "annualIncome": {"type": "string", "enum": ["lt50k", "50to100k", "100to250k", "gt250k"]},
    "netWorth": {"type": "string", "enum": ["lt100k", "100to500k", "500kto1m", "gt1m"]},
    "usesDataForBusiness": {"type": "boolean"}
  },
  "additionalProperties": false
}`

// OnboardingStore persists onboarding progress.
type OnboardingStore interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
	HasQuestionnaire(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error
	AgreementKinds(ctx context.Context, userID uuid.UUID) ([]string, error)
	SaveAgreements(ctx context.Context, agreements []models.DataAgreement) error
}

type OnboardingService struct {
	store  OnboardingStore
	schema *gojsonschema.Schema
	now    func() time.Time
}

func NewOnboardingService(store OnboardingStore) (*OnboardingService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionnaireSchema))
	if err != nil {
		return nil, fmt.Errorf("compile questionnaire schema: %w", err)
	}
	return &OnboardingService{store: store, schema: schema, now: time.Now}, nil
}

type onboardingProgress struct {
	profile       *models.Profile
	questionnaire bool
	agreements    bool
}

func (p *onboardingProgress) next() string {
	switch {
	case p.profile == nil:
		return StepAdditionalData
	case !p.questionnaire:
		return StepQuestionnaire
	case !p.agreements:
		return StepAgreements
	}
	return ""
}

// RequiredAgreements lists the agreements a user with this profile must sign.
func RequiredAgreements(profile *models.Profile) []string {
	required := []string{models.AgreementOPRASubscriber}
	if profile != nil && !profile.IsProfessional {
		required = append(required, models.AgreementNonProfessionalDeclaration)
	}
	return required
}

func (s *OnboardingService) progress(ctx context.Context, userID uuid.UUID) (*onboardingProgress, error) {
	profile, err := s.store.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	hasQuestionnaire, err := s.store.HasQuestionnaire(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &onboardingProgress{profile: profile, questionnaire: hasQuestionnaire}
	if profile != nil {
		kinds, err := s.store.AgreementKinds(ctx, userID)
		if err != nil {
			return nil, err
		}
		p.agreements = containsAll(kinds, RequiredAgreements(profile))
	}
	return p, nil
}

func (s *OnboardingService) Status(ctx context.Context, userID uuid.UUID) (*dto.OnboardingStatusResponse, error) {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := p.next()
	return &dto.OnboardingStatusResponse{
		AdditionalData: p.profile != nil,
		Questionnaire:  p.questionnaire,
		Agreements:     p.agreements,
		Complete:       next == "",
		Next:           next,
	}, nil
}

// SaveAdditionalData validates and upserts the user's profile.
func (s *OnboardingService) SaveAdditionalData(ctx context.Context, userID uuid.UUID, req *dto.AdditionalDataRequest) (*models.Profile, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	country := strings.ToUpper(strings.TrimSpace(req.Country))

	if firstName == "" {
		return nil, ErrFirstNameRequired
	}
	if lastName == "" {
		return nil, ErrLastNameRequired
	}
	if len(country) != 2 || !isASCIILetters(country) {
		return nil, ErrCountryInvalid
	}
	dob, err := time.Parse("2006-01-02", strings.TrimSpace(req.DateOfBirth))
	if err != nil {
		return nil, ErrDateOfBirthInvalid
	}
	if dob.AddDate(18, 0, 0).After(s.now()) {
		return nil, ErrUnderage
	}

	profile := &models.Profile{
		UserID:         userID,
		FirstName:      firstName,
		LastName:       lastName,
		Phone:          strings.TrimSpace(req.Phone),
		AddressLine:    strings.TrimSpace(req.AddressLine),
		City:           strings.TrimSpace(req.City),
		Country:        country,
		DateOfBirth:    dob,
		IsProfessional: req.IsProfessional,
	}
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SubmitQuestionnaire validates answers against the questionnaire schema and
// stores them. A user can submit only once.
func (s *OnboardingService) SubmitQuestionnaire(ctx context.Context, userID uuid.UUID, answers json.RawMessage) error {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return err
	}
	if p.profile == nil {
		return &StepOutOfOrderError{Next: StepAdditionalData}
	}
	if p.questionnaire {
		return ErrQuestionnaireExists
	}

	if len(answers) == 0 {
		return fmt.Errorf("%w: answers are required", ErrAnswersInvalid)
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(answers))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAnswersInvalid, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("%w: %s", ErrAnswersInvalid, strings.Join(details, "; "))
	}

	return s.store.CreateQuestionnaire(ctx, &models.Questionnaire{
		ID:      uuid.New(),
		UserID:  userID,
		Answers: []byte(answers),
	})
}

// SignAgreements records the agreements the user signed. Every agreement
// required for the user's profile must be included.
func (s *OnboardingService) SignAgreements(ctx context.Context, userID uuid.UUID, req *dto.AgreementsRequest, clientIP string) error {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return err
	}
	if next := p.next(); next == StepAdditionalData || next == StepQuestionnaire {
		return &StepOutOfOrderError{Next: next}
	}

	signer := strings.TrimSpace(req.SignerName)
	if signer == "" {
		return ErrSignerNameRequired
	}
	for _, kind := range req.Agreements {
		if kind != models.AgreementOPRASubscriber && kind != models.AgreementNonProfessionalDeclaration {
			return fmt.Errorf("%w: %s", ErrUnknownAgreement, kind)
		}
	}
	for _, kind := range RequiredAgreements(p.profile) {
		if !containsAll(req.Agreements, []string{kind}) {
			return fmt.Errorf("%w: %s", ErrAgreementMissing, kind)
		}
	}

	signedAt := s.now().UTC()
	agreements := make([]models.DataAgreement, 0, len(req.Agreements))
	seen := make(map[string]bool, len(req.Agreements))
	for _, kind := range req.Agreements {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		agreements = append(agreements, models.DataAgreement{
			ID:         uuid.New(),
			UserID:     userID,
			Kind:       kind,
			Version:    AgreementVersion,
			SignerName: signer,
			SignedAt:   signedAt,
			ClientIP:   clientIP,
		})
	}
	return s.store.SaveAgreements(ctx, agreements)
}

func containsAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
