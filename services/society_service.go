package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/gateway"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/society"
)

type SocietyService struct {
	store          store.Store
	functions      FunctionCaller
	subscriptions  *SubscriptionService
	audit          *audit.Recorder
	logger         *zap.Logger
	visitorBaseURL string
	now            func() time.Time
}

func NewSocietyService(
	st store.Store,
	functions FunctionCaller,
	subscriptions *SubscriptionService,
	rec *audit.Recorder,
	visitorBaseURL string,
	logger *zap.Logger,
) *SocietyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocietyService{
		store:          st,
		functions:      functions,
		subscriptions:  subscriptions,
		audit:          rec,
		logger:         logger,
		visitorBaseURL: strings.TrimRight(visitorBaseURL, "/"),
		now:            time.Now,
	}
}

// Create provisions a society and its admin account as two remote calls.
// Both carry the same requestId so a retried call is recognised by the
// backend. When the admin cannot be created the society is purged again and
// the admin error is returned.
func (s *SocietyService) Create(ctx context.Context, req society.CreateSocietyRequest) (*society.CreateSocietyResponse, error) {
	price, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()

	var created struct {
		SocietyID string `json:"societyId"`
	}
	err = s.functions.Call(ctx, gateway.FnCreateSociety, map[string]any{
		"requestId":    requestID,
		"name":         strings.TrimSpace(req.Name),
		"address":      strings.TrimSpace(req.Address),
		"totalUnits":   0,
		"plan":         strings.TrimSpace(req.Plan),
		"planPrice":    price,
		"billingCycle": billingCycleOr(req.BillingCycle),
		"planType":     "paid",
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create society: %w", err)
	}
	if created.SocietyID == "" {
		return nil, apperr.External(gateway.FnCreateSociety, errors.New("no societyId in response"))
	}

	var admin struct {
		UID string `json:"uid"`
	}
	err = s.functions.Call(ctx, gateway.FnCreateSocietyAdmin, map[string]any{
		"requestId": requestID,
		"societyId": created.SocietyID,
		"name":      strings.TrimSpace(req.AdminName),
		"email":     strings.TrimSpace(req.AdminEmail),
	}, &admin)
	if err != nil {
		s.compensateCreate(ctx, created.SocietyID, requestID, err)
		return nil, fmt.Errorf("create society admin: %w", err)
	}

	s.audit.Record(ctx, "society.create", society.Collection+"/"+created.SocietyID, map[string]any{
		"name":      req.Name,
		"plan":      req.Plan,
		"planPrice": price,
		"adminUid":  admin.UID,
	})
	return &society.CreateSocietyResponse{SocietyID: created.SocietyID, AdminUID: admin.UID}, nil
}

func (s *SocietyService) compensateCreate(ctx context.Context, societyID, requestID string, cause error) {
	// the caller's deadline may be what failed the admin call
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := s.functions.Call(ctx, gateway.FnHardDeleteSociety, map[string]any{
		"societyId": societyID,
		"requestId": requestID,
	}, nil)
	if err != nil {
		s.logger.Error("society left without admin; purge failed",
			zap.String("society_id", societyID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("society purged after admin creation failed",
		zap.String("society_id", societyID),
		zap.NamedError("cause", cause),
	)
	s.audit.Record(ctx, "society.create.rollback", society.Collection+"/"+societyID, map[string]any{
		"cause": cause.Error(),
	})
}

func validateCreate(req society.CreateSocietyRequest) (float64, error) {
	if strings.TrimSpace(req.Name) == "" {
		return 0, apperr.Validation("name is required")
	}
	if strings.TrimSpace(req.Plan) == "" {
		return 0, apperr.Validation("plan is required")
	}
	if strings.TrimSpace(req.AdminName) == "" {
		return 0, apperr.Validation("adminName is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.AdminEmail)); err != nil {
		return 0, apperr.Validation("adminEmail is not a valid address")
	}

	price := float64(req.Units) * req.PricePerUnit
	if req.PlanPrice != nil {
		price = *req.PlanPrice
	} else if req.Units < 0 || req.PricePerUnit < 0 {
		return 0, apperr.Validation("units and pricePerUnit must not be negative")
	}
	if price < 0 {
		return 0, apperr.Validation("planPrice must not be negative")
	}
	return price, nil
}

func billingCycleOr(cycle string) string {
	if c := strings.TrimSpace(cycle); c != "" {
		return c
	}
	return "monthly"
}

// List returns every evaluated society, newest first, with totalUnits set to
// the number of units actually registered under it.
func (s *SocietyService) List(ctx context.Context) ([]society.View, error) {
	views, err := s.subscriptions.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		n, err := s.store.Count(ctx, store.Path(society.Collection, v.ID, society.UnitsCollection))
		if err != nil {
			return nil, fmt.Errorf("count units of %s: %w", v.ID, err)
		}
		v.TotalUnits = n
	}
	return views, nil
}

// Detail returns the evaluated society with its member counts.
func (s *SocietyService) Detail(ctx context.Context, id string) (*society.Detail, error) {
	view, err := s.subscriptions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var stats society.Stats
	counts := []struct {
		collection string
		dst        *int
	}{
		{society.ResidentsCollection, &stats.Residents},
		{society.GuardsCollection, &stats.Guards},
		{society.StaffCollection, &stats.Staff},
		{society.VisitorsCollection, &stats.Visitors},
	}
	for _, c := range counts {
		n, err := s.store.Count(ctx, store.Path(society.Collection, id, c.collection))
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.collection, err)
		}
		*c.dst = n
	}

	return &society.Detail{View: view, Stats: stats}, nil
}

// Update edits the descriptive and pricing fields of a society.
func (s *SocietyService) Update(ctx context.Context, id string, req society.UpdateSocietyRequest) (society.View, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Plan) == "" {
		return society.View{}, apperr.Validation("name and plan are required")
	}
	if req.PlanPrice < 0 {
		return society.View{}, apperr.Validation("planPrice must not be negative")
	}

	err := s.store.Update(ctx, society.Collection, id, store.Patch{
		"name":         strings.TrimSpace(req.Name),
		"address":      strings.TrimSpace(req.Address),
		"plan":         strings.TrimSpace(req.Plan),
		"planPrice":    req.PlanPrice,
		"billingCycle": billingCycleOr(req.BillingCycle),
		"updatedAt":    s.now(),
	})
	if err != nil {
		return society.View{}, err
	}

	s.audit.Record(ctx, "society.update", society.Collection+"/"+id, map[string]any{
		"name": req.Name,
		"plan": req.Plan,
	})
	return s.subscriptions.Get(ctx, id)
}

// SetFeature switches one feature module on or off.
func (s *SocietyService) SetFeature(ctx context.Context, id, feature string, enabled bool) (society.View, error) {
	if !society.KnownFeature(feature) {
		return society.View{}, apperr.Validation("unknown feature %q", feature)
	}
	err := s.store.Update(ctx, society.Collection, id, store.Patch{
		"features." + feature: enabled,
		"updatedAt":           s.now(),
	})
	if err != nil {
		return society.View{}, err
	}

	s.audit.Record(ctx, "society.feature", society.Collection+"/"+id, map[string]any{
		"feature": feature,
		"enabled": enabled,
	})
	return s.subscriptions.Get(ctx, id)
}

// Purge permanently deletes a society and everything under it. confirm must
// repeat the society id.
func (s *SocietyService) Purge(ctx context.Context, id, confirm string) error {
	if id == "" || confirm != id {
		return apperr.Validation("confirmation must equal the society id")
	}
	if _, err := s.store.Get(ctx, society.Collection, id); err != nil {
		return err
	}
	if err := s.functions.Call(ctx, gateway.FnHardDeleteSociety, map[string]any{"societyId": id}, nil); err != nil {
		return fmt.Errorf("purge society: %w", err)
	}
	s.audit.Record(ctx, "society.purge", society.Collection+"/"+id, nil)
	return nil
}

// RegenerateQR rotates the visitor QR key and returns the updated society.
func (s *SocietyService) RegenerateQR(ctx context.Context, id string) (society.View, error) {
	if err := s.functions.Call(ctx, gateway.FnRegenerateSocietyQR, map[string]any{"societyId": id}, nil); err != nil {
		return society.View{}, fmt.Errorf("regenerate qr: %w", err)
	}
	s.audit.Record(ctx, "society.qr.regenerate", society.Collection+"/"+id, nil)
	return s.subscriptions.Get(ctx, id)
}

// VisitorURL is the entry link printed on the society's gate QR.
func (s *SocietyService) VisitorURL(soc *society.Society) string {
	return fmt.Sprintf("%s/visitor-entry/%s?key=%s", s.visitorBaseURL, url.PathEscape(soc.ID), url.QueryEscape(soc.QRKey))
}

// VisitorQR renders the society's visitor entry link as a PNG.
func (s *SocietyService) VisitorQR(ctx context.Context, id string, size int) ([]byte, error) {
	snap, err := s.store.Get(ctx, society.Collection, id)
	if err != nil {
		return nil, err
	}
	soc, err := decodeSociety(snap)
	if err != nil {
		return nil, err
	}
	if soc.QRKey == "" {
		return nil, apperr.NotFound("society %s has no QR key", id)
	}
	if size <= 0 || size > 1024 {
		size = 256
	}

	png, err := qrcode.Encode(s.VisitorURL(soc), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}
	return png, nil
}
