// Package importer turns spreadsheet and JSON uploads into coupon creation requests.
//
// Parsing and persistence are separate steps: Import resolves campaign names
// (creating missing campaigns once per batch) and reports malformed records,
// but never writes coupons itself.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// Format identifies an upload encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Column names recognised in tabular sources.
const (
	ColumnCode         = "code"
	ColumnCampaignName = "campaign_name"
	ColumnMetadata     = "metadata"
)

// Record-level error codes.
const (
	ErrCodeMissingCode     = "missing_code"
	ErrCodeInvalidMetadata = "invalid_metadata"
	ErrCodeInvalidRecord   = "invalid_record"
	ErrCodeCampaign        = "campaign_unresolved"
)

// Row is one source record before campaign resolution. Line is 1-based:
// the spreadsheet line for tabular sources, the array position for JSON.
type Row struct {
	Line         int
	Code         string
	CampaignName string
	MetadataText string
	MetadataRaw  json.RawMessage
	Err          *RecordError
}

// Request is a coupon ready to be persisted.
type Request struct {
	Line       int
	Code       string
	CampaignID *int64
	Metadata   map[string]interface{}
}

// RecordError describes why one record was not imported.
type RecordError struct {
	Row        int    `json:"row"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	CouponCode string `json:"coupon_code,omitempty"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result is the outcome of Import.
type Result struct {
	Format   Format
	Requests []Request
	Errors   []RecordError
}

// CampaignResolver maps a campaign name to an id, creating the campaign when absent.
type CampaignResolver interface {
	FindOrCreateByName(ctx context.Context, name string) (int64, error)
}

// Importer parses uploads and resolves campaign references.
type Importer struct {
	resolver CampaignResolver
	logger   *zap.Logger
}

// New creates an Importer.
func New(resolver CampaignResolver, logger *zap.Logger) *Importer {
	return &Importer{resolver: resolver, logger: logger}
}

// DetectFormat picks the format from a file name extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename)))
	}
}

// Parse decodes a source into rows. Errors that affect the whole source are validation errors.
func Parse(format Format, r io.Reader) ([]Row, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(r)
	case FormatCSV:
		return ParseCSV(r)
	case FormatJSON:
		return ParseJSON(r)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported format: %q", format))
	}
}

// Import parses r and resolves each record. Campaign names are resolved at most once per call.
func (i *Importer) Import(ctx context.Context, format Format, r io.Reader) (*Result, error) {
	rows, err := Parse(format, r)
	if err != nil {
		return nil, err
	}

	result := &Result{Format: format, Requests: make([]Request, 0, len(rows))}
	campaigns := make(map[string]int64)

	for _, row := range rows {
		if row.Err != nil {
			result.Errors = append(result.Errors, *row.Err)
			continue
		}
		code := strings.TrimSpace(row.Code)
		if code == "" {
			result.Errors = append(result.Errors, RecordError{Row: row.Line, Code: ErrCodeMissingCode, Message: "code is required"})
			continue
		}
		metadata, err := parseMetadata(row)
		if err != nil {
			result.Errors = append(result.Errors, RecordError{
				Row: row.Line, Code: ErrCodeInvalidMetadata, Message: err.Error(), CouponCode: code,
			})
			continue
		}

		req := Request{Line: row.Line, Code: code, Metadata: metadata}
		if name := strings.TrimSpace(row.CampaignName); name != "" {
			id, ok := campaigns[name]
			if !ok {
				id, err = i.resolver.FindOrCreateByName(ctx, name)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					result.Errors = append(result.Errors, RecordError{
						Row: row.Line, Code: ErrCodeCampaign, Message: err.Error(), CouponCode: code,
					})
					continue
				}
				campaigns[name] = id
			}
			req.CampaignID = &id
		}
		result.Requests = append(result.Requests, req)
	}

	i.logger.Info("import parsed",
		zap.String("format", string(format)),
		zap.Int("records", len(rows)),
		zap.Int("accepted", len(result.Requests)),
		zap.Int("rejected", len(result.Errors)),
		zap.Int("campaigns", len(campaigns)),
	)
	return result, nil
}

// parseMetadata accepts an empty value, a JSON object, or (for JSON sources) a string holding a JSON object.
func parseMetadata(row Row) (map[string]interface{}, error) {
	text := row.MetadataText
	raw := strings.TrimSpace(string(row.MetadataRaw))
	if raw != "" && raw != "null" {
		if strings.HasPrefix(raw, `"`) {
			if err := json.Unmarshal([]byte(raw), &text); err != nil {
				return nil, fmt.Errorf("metadata is not valid JSON: %v", err)
			}
		} else {
			text = raw
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]interface{}{}, nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(text), &metadata); err != nil {
		return nil, fmt.Errorf("metadata is not a valid JSON object: %v", err)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return metadata, nil
}
