package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

type jsonRecord struct {
	Code         *string         `json:"code"`
	CampaignName *string         `json:"campaign_name"`
	Metadata     json.RawMessage `json:"metadata"`
}

// ParseJSON reads a JSON array of {code, campaign_name?, metadata?} objects.
// A malformed element becomes a row error; a malformed array fails the whole source.
func ParseJSON(r io.Reader) ([]Row, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("upload must be a JSON array of objects: %v", err))
	}

	rows := make([]Row, 0, len(items))
	for i, item := range items {
		line := i + 1
		var rec jsonRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			rows = append(rows, Row{Line: line, Err: &RecordError{
				Row: line, Code: ErrCodeInvalidRecord, Message: fmt.Sprintf("invalid record: %v", err),
			}})
			continue
		}
		row := Row{Line: line, MetadataRaw: rec.Metadata}
		if rec.Code != nil {
			row.Code = *rec.Code
		}
		if rec.CampaignName != nil {
			row.CampaignName = *rec.CampaignName
		}
		rows = append(rows, row)
	}
	return rows, nil
}
