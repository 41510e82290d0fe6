package model

import (
	"unicode"

	"golang.org/x/text/language"
)

// Module identifies one of the two insurance business lines. Each module
// runs against its own rule configuration and credentials.
type Module string

const (
	// ModuleTP is the Third Party line.
	ModuleTP Module = "tp"
	// ModuleCO is the Comprehensive line.
	ModuleCO Module = "co"
)

// AllModules returns the modules the engine can serve.
func AllModules() []Module {
	return []Module{ModuleTP, ModuleCO}
}

// Valid reports whether m names a known module.
func (m Module) Valid() bool {
	return m == ModuleTP || m == ModuleCO
}

// ClaimRecord is the canonical, format-agnostic representation of a claim
// used by all pipeline stages after normalization.
type ClaimRecord struct {
	CaseNumber          string       `json:"case_number"`
	AccidentDescription string       `json:"accident_description"`
	AccidentDate        string       `json:"accident_date,omitempty"`
	Location            string       `json:"location,omitempty"`
	City                string       `json:"city,omitempty"`
	SurveyorName        string       `json:"surveyor_name,omitempty"`
	DescriptionLang     language.Tag `json:"-"`
	Parties             []Party      `json:"parties"`
}

// Party is one participant in the accident. Liability is always present and
// within [0,100] once normalization has succeeded.
type Party struct {
	ID                string      `json:"id"`
	Name              string      `json:"name,omitempty"`
	Liability         float64     `json:"liability"`
	Insurer           string      `json:"insurer,omitempty"`
	Cooperative       bool        `json:"cooperative"`
	PolicyNumber      string      `json:"policy_number,omitempty"`
	PolicyholderID    string      `json:"policyholder_id,omitempty"`
	PolicyholderName  string      `json:"policyholder_name,omitempty"`
	VehicleSerial     string      `json:"vehicle_serial,omitempty"`
	VehicleMake       string      `json:"vehicle_make,omitempty"`
	VehicleModel      string      `json:"vehicle_model,omitempty"`
	PlateNo           string      `json:"plate_no,omitempty"`
	License           LicenseInfo `json:"license,omitempty"`
}

// LicenseInfo carries the structured fields produced by the license-document
// collaborator. Values may be empty or "Not Identify"; both mean the
// corresponding recovery check does not apply.
type LicenseInfo struct {
	ExpiryDate        string `json:"expiry_date,omitempty"`
	TypeFromMakeModel string `json:"type_from_make_model,omitempty"`
	TypeFromRequest   string `json:"type_from_request,omitempty"`
}

// NotIdentify is the collaborator's placeholder for fields it could not read.
const NotIdentify = "Not Identify"

// Known reports whether a license field carries a usable value.
func Known(field string) bool {
	return field != "" && field != NotIdentify
}

// DetectLanguage returns language.Arabic when the text contains any character
// from the Arabic script, language.English otherwise. Mixed text counts as
// Arabic because the decision prompt assumes fully English input.
func DetectLanguage(text string) language.Tag {
	for _, r := range text {
		if unicode.Is(unicode.Arabic, r) {
			return language.Arabic
		}
	}
	return language.English
}
