package dto

import "encoding/json"

type AdditionalDataRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone"`
	AddressLine    string `json:"addressLine"`
	City           string `json:"city"`
	Country        string `json:"country"`
	DateOfBirth    string `json:"dateOfBirth"`
	IsProfessional bool   `json:"isProfessional"`
}

type QuestionnaireRequest struct {
	Answers json.RawMessage `json:"answers"`
}

type AgreementsRequest struct {
	SignerName string   `json:"signerName"`
	Agreements []string `json:"agreements"`
}

type OnboardingStatusResponse struct {
	AdditionalData bool   `json:"additionalData"`
	Questionnaire  bool   `json:"questionnaire"`
	Agreements     bool   `json:"agreements"`
	Complete       bool   `json:"complete"`
	Next           string `json:"next"`
}
