package application

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// ImportResultDTO reports a bulk upload: coupons created and records rejected.
type ImportResultDTO struct {
	Created []*CouponDTO           `json:"created"`
	Errors  []importer.RecordError `json:"errors"`
}

// ImportService persists bulk uploads one coupon at a time. A failing record does not
// roll back records created before it.
type ImportService struct {
	importer *importer.Importer
	coupons  *CouponService
	events   EventPublisher
	logger   *zap.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(imp *importer.Importer, coupons *CouponService, events EventPublisher, logger *zap.Logger) *ImportService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ImportService{importer: imp, coupons: coupons, events: events, logger: logger}
}

// Import parses r in the given format and creates every acceptable record.
func (s *ImportService) Import(ctx context.Context, format importer.Format, r io.Reader) (*ImportResultDTO, error) {
	parsed, err := s.importer.Import(ctx, format, r)
	if err != nil {
		return nil, err
	}

	result := &ImportResultDTO{
		Created: make([]*CouponDTO, 0, len(parsed.Requests)),
		Errors:  append([]importer.RecordError{}, parsed.Errors...),
	}
	ids := make([]int64, 0, len(parsed.Requests))
	for _, req := range parsed.Requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.coupons.create(ctx, CreateCouponRequest{
			Code:       req.Code,
			CampaignID: req.CampaignID,
			Metadata:   req.Metadata,
		})
		if err != nil {
			result.Errors = append(result.Errors, importer.RecordError{
				Row:        req.Line,
				Code:       errorCode(err),
				Message:    recordMessage(err),
				CouponCode: req.Code,
			})
			continue
		}
		result.Created = append(result.Created, toCouponDTO(c))
		ids = append(ids, c.ID())
	}

	metrics.RecordImport(string(format), metrics.ImportCreated, len(result.Created))
	metrics.RecordImport(string(format), metrics.ImportRejected, len(result.Errors))
	s.logger.Info("import finished",
		zap.String("format", string(format)),
		zap.Int("created", len(result.Created)),
		zap.Int("rejected", len(result.Errors)),
	)
	if len(ids) > 0 {
		s.events.Publish(ctx, EventCouponsImported, "", ImportedEvent{
			Format:    string(format),
			CouponIDs: ids,
			Rejected:  len(result.Errors),
		})
	}
	return result, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation_failed"
	default:
		return "internal"
	}
}

func recordMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Error()
	}
	return "internal error"
}
