// Package license reads supplementary driver-license parameter sheets. Field
// teams export these from the surveyor workbook; the engine merges them into
// claims whose payloads arrived without license details.
package license

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/gulfshield/claims-engine/internal/model"
)

// Column headers the reader recognizes, matched case-insensitively after
// trimming. The party ID column is mandatory; the rest are optional.
const (
	colPartyID      = "party_id"
	colExpiryDate   = "license_expiry_date"
	colTypeFromMake = "license_type_from_make_model"
	colTypeFromReq  = "license_type_from_request"
)

// ReadParams reads the first sheet of the workbook at path and returns license
// details keyed by party ID. Rows with an empty party ID are skipped; a later
// row for the same party overwrites an earlier one.
func ReadParams(path string) (map[string]model.LicenseInfo, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "license: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("license: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("license: params sheet is empty")
	}

	cols, err := headerIndex(sheet.Rows[0])
	if err != nil {
		return nil, err
	}

	params := make(map[string]model.LicenseInfo)
	for _, row := range sheet.Rows[1:] {
		id := cellAt(row, cols[colPartyID])
		if id == "" {
			continue
		}
		params[id] = model.LicenseInfo{
			ExpiryDate:        cellAt(row, cols[colExpiryDate]),
			TypeFromMakeModel: cellAt(row, cols[colTypeFromMake]),
			TypeFromRequest:   cellAt(row, cols[colTypeFromReq]),
		}
	}
	return params, nil
}

func headerIndex(row *xlsx.Row) (map[string]int, error) {
	cols := map[string]int{
		colPartyID:      -1,
		colExpiryDate:   -1,
		colTypeFromMake: -1,
		colTypeFromReq:  -1,
	}
	for i, cell := range row.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if _, ok := cols[name]; ok {
			cols[name] = i
		}
	}
	if cols[colPartyID] < 0 {
		return nil, eris.Errorf("license: params sheet missing %q column", colPartyID)
	}
	return cols, nil
}

func cellAt(row *xlsx.Row, idx int) string {
	if idx < 0 || idx >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[idx].String())
}
