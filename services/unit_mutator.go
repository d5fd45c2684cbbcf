package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/gateway"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/society"
	"societyAdminAPI/internal/types/unitrequest"
)

// UnitMutator applies the unit change an approved request asks for. It must
// tolerate being called twice for the same request.
type UnitMutator interface {
	Apply(ctx context.Context, req *unitrequest.Request) error
}

// FunctionUnitMutator delegates unit changes to the applyUnit* backend
// functions. They change units only; the request status stays with
// UnitRequestService so the approval is written after the change lands.
type FunctionUnitMutator struct {
	functions FunctionCaller
}

func NewFunctionUnitMutator(functions FunctionCaller) *FunctionUnitMutator {
	return &FunctionUnitMutator{functions: functions}
}

func (f *FunctionUnitMutator) Apply(ctx context.Context, req *unitrequest.Request) error {
	var fn string
	switch req.Kind {
	case unitrequest.KindCreation:
		fn = gateway.FnApplyUnitCreation
	case unitrequest.KindDeletion:
		fn = gateway.FnApplyUnitDeletion
	case unitrequest.KindEdit:
		fn = gateway.FnApplyUnitEdit
	default:
		return apperr.Validation("unknown request kind %q", req.Kind)
	}
	return f.functions.Call(ctx, fn, map[string]any{
		"requestId": req.ID,
		"societyId": req.SocietyID,
		"unitId":    req.UnitID,
		"unitNo":    req.UnitNo,
		"changes":   req.Changes,
	}, nil)
}

// DirectUnitMutator writes units under societies/{id}/units and keeps the
// society's unitsUsed counter in step.
type DirectUnitMutator struct {
	store store.Store
	now   func() time.Time
}

func NewDirectUnitMutator(st store.Store) *DirectUnitMutator {
	return &DirectUnitMutator{store: st, now: time.Now}
}

func (d *DirectUnitMutator) Apply(ctx context.Context, req *unitrequest.Request) error {
	if req.SocietyID == "" {
		return apperr.Validation("request %s has no societyId", req.ID)
	}
	units := store.Path(society.Collection, req.SocietyID, society.UnitsCollection)

	switch req.Kind {
	case unitrequest.KindCreation:
		return d.create(ctx, units, req)
	case unitrequest.KindDeletion:
		return d.delete(ctx, units, req)
	case unitrequest.KindEdit:
		if req.UnitID == "" {
			return apperr.Validation("request %s has no unitId", req.ID)
		}
		patch := store.Patch{"updatedAt": d.now()}
		for k, v := range req.Changes {
			patch[k] = v
		}
		return d.store.Update(ctx, units, req.UnitID, patch)
	}
	return apperr.Validation("unknown request kind %q", req.Kind)
}

func (d *DirectUnitMutator) create(ctx context.Context, units string, req *unitrequest.Request) error {
	if req.UnitNo == "" {
		return apperr.Validation("request %s has no unitNo", req.ID)
	}
	// the unit id is the request id, so a repeated approval finds its unit
	if _, err := d.store.Get(ctx, units, req.ID); err == nil {
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	data := store.Patch{
		"unitNo":    req.UnitNo,
		"requestId": req.ID,
		"createdAt": d.now(),
	}
	for k, v := range req.Changes {
		if _, reserved := data[k]; !reserved {
			data[k] = v
		}
	}
	if err := d.store.Set(ctx, units, req.ID, data); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return d.store.Update(ctx, society.Collection, req.SocietyID, store.Patch{"unitsUsed": store.Increment{Delta: 1}})
}

func (d *DirectUnitMutator) delete(ctx context.Context, units string, req *unitrequest.Request) error {
	if req.UnitID == "" {
		return apperr.Validation("request %s has no unitId", req.ID)
	}
	if _, err := d.store.Get(ctx, units, req.UnitID); errors.Is(err, apperr.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if err := d.store.Delete(ctx, units, req.UnitID); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return d.store.Update(ctx, society.Collection, req.SocietyID, store.Patch{"unitsUsed": store.Increment{Delta: -1}})
}
