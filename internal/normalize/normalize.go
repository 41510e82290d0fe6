// Package normalize converts inbound XML or JSON claim payloads into the
// canonical ClaimRecord and serializes pipeline results back to the caller's
// format. Normalization validates; it never repairs field values.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/gulfshield/claims-engine/internal/model"
)

// Format identifies a wire format for claims and decisions.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatAuto Format = "auto"
)

// ValidationError reports the first violated field of an inbound payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("normalize: field %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Option configures normalization.
type Option func(*options)

type options struct {
	licenseParams map[string]model.LicenseInfo
}

// WithLicenseParams merges license fields from the OCR/license collaborator
// into matching parties (by party ID) before validation runs. Fields already
// present on the payload win.
func WithLicenseParams(params map[string]model.LicenseInfo) Option {
	return func(o *options) {
		o.licenseParams = params
	}
}

// DetectFormat sniffs the first non-space byte of payload, tolerating a
// leading UTF-8 BOM, and reports FormatXML or FormatJSON.
func DetectFormat(payload []byte) (Format, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf")))
	switch {
	case len(trimmed) == 0:
		return "", invalid("payload", "empty")
	case trimmed[0] == '<':
		return FormatXML, nil
	case trimmed[0] == '{':
		return FormatJSON, nil
	default:
		return "", invalid("payload", "cannot detect format, expected XML or JSON")
	}
}

// Normalize parses payload in the given format (FormatAuto sniffs the first
// non-space byte) and validates it into a ClaimRecord. The first violated
// field is reported in a ValidationError; no partial repair is attempted.
func Normalize(payload []byte, format Format, opts ...Option) (*model.ClaimRecord, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf")))
	if format == FormatAuto {
		detected, err := DetectFormat(trimmed)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	var rec *model.ClaimRecord
	var err error
	switch format {
	case FormatJSON:
		rec, err = decodeJSON(trimmed)
	case FormatXML:
		rec, err = decodeXML(trimmed)
	default:
		return nil, eris.Errorf("normalize: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	mergeLicenseParams(rec, o.licenseParams)

	if err := validate(rec); err != nil {
		return nil, err
	}

	rec.DescriptionLang = model.DetectLanguage(rec.AccidentDescription)
	return rec, nil
}

// claimWire mirrors model.ClaimRecord with a pointer liability so a missing
// figure is distinguishable from zero.
type claimWire struct {
	CaseNumber          string      `json:"case_number"`
	AccidentDescription string      `json:"accident_description"`
	AccidentDate        string      `json:"accident_date,omitempty"`
	Location            string      `json:"location,omitempty"`
	City                string      `json:"city,omitempty"`
	SurveyorName        string      `json:"surveyor_name,omitempty"`
	Parties             []partyWire `json:"parties"`
}

type partyWire struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Liability        *float64          `json:"liability"`
	Insurer          string            `json:"insurer,omitempty"`
	Cooperative      bool              `json:"cooperative"`
	PolicyNumber     string            `json:"policy_number,omitempty"`
	PolicyholderID   string            `json:"policyholder_id,omitempty"`
	PolicyholderName string            `json:"policyholder_name,omitempty"`
	VehicleSerial    string            `json:"vehicle_serial,omitempty"`
	VehicleMake      string            `json:"vehicle_make,omitempty"`
	VehicleModel     string            `json:"vehicle_model,omitempty"`
	PlateNo          string            `json:"plate_no,omitempty"`
	License          model.LicenseInfo `json:"license,omitempty"`
}

func decodeJSON(payload []byte) (*model.ClaimRecord, error) {
	var wire claimWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, invalid("payload", "invalid JSON: "+err.Error())
	}
	return wireToRecord(&wire)
}

func wireToRecord(wire *claimWire) (*model.ClaimRecord, error) {
	rec := &model.ClaimRecord{
		CaseNumber:          wire.CaseNumber,
		AccidentDescription: wire.AccidentDescription,
		AccidentDate:        wire.AccidentDate,
		Location:            wire.Location,
		City:                wire.City,
		SurveyorName:        wire.SurveyorName,
	}
	for i, pw := range wire.Parties {
		p := model.Party{
			ID:               pw.ID,
			Name:             pw.Name,
			Insurer:          pw.Insurer,
			Cooperative:      pw.Cooperative,
			PolicyNumber:     pw.PolicyNumber,
			PolicyholderID:   pw.PolicyholderID,
			PolicyholderName: pw.PolicyholderName,
			VehicleSerial:    pw.VehicleSerial,
			VehicleMake:      pw.VehicleMake,
			VehicleModel:     pw.VehicleModel,
			PlateNo:          pw.PlateNo,
			License:          pw.License,
		}
		if pw.Liability == nil {
			return nil, invalid(fmt.Sprintf("parties[%d].liability", i), "missing")
		}
		p.Liability = *pw.Liability
		rec.Parties = append(rec.Parties, p)
	}
	return rec, nil
}

func validate(rec *model.ClaimRecord) error {
	if rec.AccidentDescription == "" {
		return invalid("accident_description", "must not be empty")
	}
	if len(rec.Parties) == 0 {
		return invalid("parties", "at least one party is required")
	}
	for i, p := range rec.Parties {
		if p.Liability < 0 || p.Liability > 100 {
			return invalid(fmt.Sprintf("parties[%d].liability", i),
				fmt.Sprintf("%v outside [0,100]", p.Liability))
		}
	}
	return nil
}

func mergeLicenseParams(rec *model.ClaimRecord, params map[string]model.LicenseInfo) {
	if len(params) == 0 {
		return
	}
	for i := range rec.Parties {
		info, ok := params[rec.Parties[i].ID]
		if !ok {
			continue
		}
		lic := &rec.Parties[i].License
		if lic.ExpiryDate == "" {
			lic.ExpiryDate = info.ExpiryDate
		}
		if lic.TypeFromMakeModel == "" {
			lic.TypeFromMakeModel = info.TypeFromMakeModel
		}
		if lic.TypeFromRequest == "" {
			lic.TypeFromRequest = info.TypeFromRequest
		}
	}
}
