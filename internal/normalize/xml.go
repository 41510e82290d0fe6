package normalize

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/gulfshield/claims-engine/internal/model"
)

// Canonical XML shape. Matches the JSON wire shape field for field.
type claimXML struct {
	XMLName             xml.Name   `xml:"Claim"`
	CaseNumber          string     `xml:"CaseNumber"`
	AccidentDescription string     `xml:"AccidentDescription"`
	AccidentDate        string     `xml:"AccidentDate,omitempty"`
	Location            string     `xml:"Location,omitempty"`
	City                string     `xml:"City,omitempty"`
	SurveyorName        string     `xml:"SurveyorName,omitempty"`
	Parties             []partyXML `xml:"Parties>Party"`
}

type partyXML struct {
	ID               string     `xml:"ID"`
	Name             string     `xml:"Name,omitempty"`
	Liability        *float64   `xml:"Liability"`
	Insurer          string     `xml:"Insurer,omitempty"`
	Cooperative      bool       `xml:"Cooperative"`
	PolicyNumber     string     `xml:"PolicyNumber,omitempty"`
	PolicyholderID   string     `xml:"PolicyholderID,omitempty"`
	PolicyholderName string     `xml:"PolicyholderName,omitempty"`
	VehicleSerial    string     `xml:"VehicleSerial,omitempty"`
	VehicleMake      string     `xml:"VehicleMake,omitempty"`
	VehicleModel     string     `xml:"VehicleModel,omitempty"`
	PlateNo          string     `xml:"PlateNo,omitempty"`
	License          licenseXML `xml:"License"`
}

type licenseXML struct {
	ExpiryDate        string `xml:"ExpiryDate,omitempty"`
	TypeFromMakeModel string `xml:"TypeFromMakeModel,omitempty"`
	TypeFromRequest   string `xml:"TypeFromRequest,omitempty"`
}

// Legacy EICWS export shape. Exports routed through Excel carry _xHHHH_
// escapes and unbound s0: prefixes; Repair strips both before decoding.
type legacyEnvelope struct {
	Cases legacyCases `xml:"cases"`
}

type legacyCases struct {
	CaseInfo legacyCaseInfo `xml:"Case_Info"`
}

type legacyCaseInfo struct {
	Accident legacyAccident `xml:"Accident_info"`
	Parties  []legacyParty  `xml:"parties>Party_Info"`
}

type legacyAccident struct {
	CaseNumber          string `xml:"caseNumber"`
	AccidentDescription string `xml:"AccidentDescription"`
	CallDate            string `xml:"callDate"`
	Location            string `xml:"location"`
	City                string `xml:"city"`
	SurveyorName        string `xml:"surveyorName"`
}

type legacyParty struct {
	ID               string          `xml:"ID"`
	Name             string          `xml:"name"`
	Liability        string          `xml:"Liability"`
	Insurance        legacyInsurance `xml:"Insurance_Info"`
	PolicyholderID   string          `xml:"Policyholder_ID"`
	PolicyholderName string          `xml:"Policyholdername"`
	ChassisNo        string          `xml:"chassisNo"`
	CarMake          string          `xml:"carMake"`
	CarModel         string          `xml:"carModel"`
	PlateNo          string          `xml:"plateNo"`
	LicenseExpiry    string          `xml:"License_Expiry_Date"`
	LicenseTypeMM    string          `xml:"License_Type_From_Make_Model"`
	LicenseTypeReq   string          `xml:"License_Type_From_Request"`
}

type legacyInsurance struct {
	EnglishName  string `xml:"ICEnglishName"`
	ArabicName   string `xml:"ICArabicName"`
	PolicyNumber string `xml:"policyNumber"`
}

var (
	excelEscapeRe  = regexp.MustCompile(`_x([0-9A-Fa-f]{4})_`)
	boundPrefixRe  = regexp.MustCompile(`xmlns:s0\s*=`)
	strayPrefixRe  = regexp.MustCompile(`(</?)s0:`)
	strayPrefixAtt = regexp.MustCompile(`\ss0:([A-Za-z_][\w.-]*=)`)
)

// Repair fixes the defects legacy exports are known to carry: a UTF-8 BOM,
// Excel _xHHHH_ character escapes, and s0: element prefixes whose namespace
// declaration was lost in transit. Well-formed input passes through unchanged.
func Repair(payload []byte) []byte {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))

	payload = excelEscapeRe.ReplaceAllFunc(payload, func(m []byte) []byte {
		code, err := strconv.ParseUint(string(m[2:6]), 16, 32)
		if err != nil {
			return m
		}
		r := rune(code)
		switch r {
		case '\r':
			// Excel encodes CR as _x000D_; it carries no content.
			return nil
		case '\n', '\t':
			return []byte(string(r))
		}
		if r < 0x20 {
			return nil
		}
		return []byte(string(r))
	})

	if !boundPrefixRe.Match(payload) {
		payload = strayPrefixRe.ReplaceAll(payload, []byte("$1"))
		payload = strayPrefixAtt.ReplaceAll(payload, []byte(" $1"))
	}
	return payload
}

// decodeXML repairs the payload, sniffs the root element, and decodes either
// the canonical <Claim> shape or a legacy EICWS export.
func decodeXML(payload []byte) (*model.ClaimRecord, error) {
	payload = Repair(payload)

	root, err := rootElement(payload)
	if err != nil {
		return nil, invalid("payload", "invalid XML: "+err.Error())
	}

	switch root {
	case "Claim":
		var doc claimXML
		if err := xml.Unmarshal(payload, &doc); err != nil {
			return nil, invalid("payload", "invalid XML: "+err.Error())
		}
		return wireToRecord(claimXMLToWire(&doc))
	case "EICWS", "cases", "Case_Info":
		return decodeLegacyXML(payload, root)
	default:
		return nil, invalid("payload", "unrecognized XML root element <"+root+">")
	}
}

func rootElement(payload []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func claimXMLToWire(doc *claimXML) *claimWire {
	wire := &claimWire{
		CaseNumber:          doc.CaseNumber,
		AccidentDescription: doc.AccidentDescription,
		AccidentDate:        doc.AccidentDate,
		Location:            doc.Location,
		City:                doc.City,
		SurveyorName:        doc.SurveyorName,
	}
	for _, p := range doc.Parties {
		wire.Parties = append(wire.Parties, partyWire{
			ID:               p.ID,
			Name:             p.Name,
			Liability:        p.Liability,
			Insurer:          p.Insurer,
			Cooperative:      p.Cooperative,
			PolicyNumber:     p.PolicyNumber,
			PolicyholderID:   p.PolicyholderID,
			PolicyholderName: p.PolicyholderName,
			VehicleSerial:    p.VehicleSerial,
			VehicleMake:      p.VehicleMake,
			VehicleModel:     p.VehicleModel,
			PlateNo:          p.PlateNo,
			License: model.LicenseInfo{
				ExpiryDate:        p.License.ExpiryDate,
				TypeFromMakeModel: p.License.TypeFromMakeModel,
				TypeFromRequest:   p.License.TypeFromRequest,
			},
		})
	}
	return wire
}

func decodeLegacyXML(payload []byte, root string) (*model.ClaimRecord, error) {
	var info legacyCaseInfo
	var err error
	switch root {
	case "EICWS":
		var env legacyEnvelope
		err = xml.Unmarshal(payload, &env)
		info = env.Cases.CaseInfo
	case "cases":
		var cases legacyCases
		err = xml.Unmarshal(payload, &cases)
		info = cases.CaseInfo
	case "Case_Info":
		err = xml.Unmarshal(payload, &info)
	}
	if err != nil {
		return nil, invalid("payload", "invalid XML: "+err.Error())
	}

	wire := &claimWire{
		CaseNumber:          info.Accident.CaseNumber,
		AccidentDescription: info.Accident.AccidentDescription,
		AccidentDate:        info.Accident.CallDate,
		Location:            info.Accident.Location,
		City:                info.Accident.City,
		SurveyorName:        info.Accident.SurveyorName,
	}
	for i, p := range info.Parties {
		pw := partyWire{
			ID:               p.ID,
			Name:             p.Name,
			Insurer:          insurerName(p.Insurance),
			Cooperative:      isCooperative(p.Insurance),
			PolicyNumber:     p.Insurance.PolicyNumber,
			PolicyholderID:   p.PolicyholderID,
			PolicyholderName: p.PolicyholderName,
			VehicleSerial:    p.ChassisNo,
			VehicleMake:      p.CarMake,
			VehicleModel:     p.CarModel,
			PlateNo:          p.PlateNo,
			License: model.LicenseInfo{
				ExpiryDate:        p.LicenseExpiry,
				TypeFromMakeModel: p.LicenseTypeMM,
				TypeFromRequest:   p.LicenseTypeReq,
			},
		}
		raw := strings.TrimSpace(p.Liability)
		if raw != "" {
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				return nil, invalid(
					"parties["+strconv.Itoa(i)+"].liability",
					"not a number: "+raw,
				)
			}
			pw.Liability = &v
		}
		wire.Parties = append(wire.Parties, pw)
	}
	return wireToRecord(wire)
}

func insurerName(ins legacyInsurance) string {
	if ins.EnglishName != "" {
		return ins.EnglishName
	}
	return ins.ArabicName
}

func isCooperative(ins legacyInsurance) bool {
	if strings.Contains(ins.ArabicName, "التعاونية") {
		return true
	}
	return strings.Contains(strings.ToLower(ins.EnglishName), "cooperative")
}
