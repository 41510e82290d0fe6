package normalize

import (
	"encoding/json"
	"encoding/xml"

	"github.com/rotisserie/eris"

	"github.com/gulfshield/claims-engine/internal/model"
)

// SerializeClaim renders a ClaimRecord in the canonical wire shape. A record
// that came out of Normalize always serializes; only an unknown format errors.
func SerializeClaim(rec *model.ClaimRecord, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(recordToWire(rec), "", "  ")
	case FormatXML:
		return marshalXML(recordToXML(rec))
	default:
		return nil, eris.Errorf("normalize: unsupported format %q", format)
	}
}

type reportXML struct {
	XMLName    xml.Name           `xml:"DecisionReport"`
	ID         string             `xml:"ID"`
	Module     model.Module       `xml:"Module"`
	CaseNumber string             `xml:"CaseNumber"`
	Model      string             `xml:"Model"`
	Parties    []partyDecisionXML `xml:"Parties>PartyDecision"`
	CreatedAt  string             `xml:"CreatedAt"`
}

type partyDecisionXML struct {
	PartyIndex        int           `xml:"PartyIndex"`
	PartyID           string        `xml:"PartyID,omitempty"`
	PartyName         string        `xml:"PartyName,omitempty"`
	Liability         float64       `xml:"Liability"`
	Outcome           model.Outcome `xml:"Outcome"`
	Rationale         string        `xml:"Rationale,omitempty"`
	Classification    string        `xml:"Classification,omitempty"`
	AppliedConditions []string      `xml:"AppliedConditions>Condition,omitempty"`
}

// SerializeReport renders a DecisionReport in the same format the claim
// arrived in, so callers never have to translate between the two.
func SerializeReport(rep *model.DecisionReport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(rep, "", "  ")
	case FormatXML:
		doc := reportXML{
			ID:         rep.ID,
			Module:     rep.Module,
			CaseNumber: rep.CaseNumber,
			Model:      rep.Model,
			CreatedAt:  rep.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		for _, pd := range rep.Parties {
			doc.Parties = append(doc.Parties, partyDecisionXML{
				PartyIndex:        pd.PartyIndex,
				PartyID:           pd.PartyID,
				PartyName:         pd.PartyName,
				Liability:         pd.Liability,
				Outcome:           pd.Outcome,
				Rationale:         pd.Rationale,
				Classification:    pd.Classification,
				AppliedConditions: pd.AppliedConditions,
			})
		}
		return marshalXML(doc)
	default:
		return nil, eris.Errorf("normalize: unsupported format %q", format)
	}
}

func marshalXML(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "normalize: marshal xml")
	}
	return append([]byte(xml.Header), body...), nil
}

func recordToWire(rec *model.ClaimRecord) *claimWire {
	wire := &claimWire{
		CaseNumber:          rec.CaseNumber,
		AccidentDescription: rec.AccidentDescription,
		AccidentDate:        rec.AccidentDate,
		Location:            rec.Location,
		City:                rec.City,
		SurveyorName:        rec.SurveyorName,
	}
	for _, p := range rec.Parties {
		liability := p.Liability
		wire.Parties = append(wire.Parties, partyWire{
			ID:               p.ID,
			Name:             p.Name,
			Liability:        &liability,
			Insurer:          p.Insurer,
			Cooperative:      p.Cooperative,
			PolicyNumber:     p.PolicyNumber,
			PolicyholderID:   p.PolicyholderID,
			PolicyholderName: p.PolicyholderName,
			VehicleSerial:    p.VehicleSerial,
			VehicleMake:      p.VehicleMake,
			VehicleModel:     p.VehicleModel,
			PlateNo:          p.PlateNo,
			License:          p.License,
		})
	}
	return wire
}

func recordToXML(rec *model.ClaimRecord) *claimXML {
	doc := &claimXML{
		CaseNumber:          rec.CaseNumber,
		AccidentDescription: rec.AccidentDescription,
		AccidentDate:        rec.AccidentDate,
		Location:            rec.Location,
		City:                rec.City,
		SurveyorName:        rec.SurveyorName,
	}
	for _, p := range rec.Parties {
		liability := p.Liability
		doc.Parties = append(doc.Parties, partyXML{
			ID:               p.ID,
			Name:             p.Name,
			Liability:        &liability,
			Insurer:          p.Insurer,
			Cooperative:      p.Cooperative,
			PolicyNumber:     p.PolicyNumber,
			PolicyholderID:   p.PolicyholderID,
			PolicyholderName: p.PolicyholderName,
			VehicleSerial:    p.VehicleSerial,
			VehicleMake:      p.VehicleMake,
			VehicleModel:     p.VehicleModel,
			PlateNo:          p.PlateNo,
			License: licenseXML{
				ExpiryDate:        p.License.ExpiryDate,
				TypeFromMakeModel: p.License.TypeFromMakeModel,
				TypeFromRequest:   p.License.TypeFromRequest,
			},
		})
	}
	return doc
}
