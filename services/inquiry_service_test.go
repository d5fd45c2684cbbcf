package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/inquiry"
)

func TestInquiry_StatusMovesForwardOnly(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(inquiry.Collection, "q1", store.Patch{"name": "Kiran", "status": "new"})
	svc := NewInquiryService(mem, nil)
	ctx := context.Background()

	in, err := svc.UpdateStatus(ctx, "q1", inquiry.StatusContacted)
	require.NoError(t, err)
	assert.Equal(t, inquiry.StatusContacted, in.Status)

	_, err = svc.UpdateStatus(ctx, "q1", inquiry.StatusContacted)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.UpdateStatus(ctx, "q1", inquiry.StatusNew)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	in, err = svc.UpdateStatus(ctx, "q1", inquiry.StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, inquiry.StatusClosed, in.Status)

	_, err = svc.UpdateStatus(ctx, "q1", "archived")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateStatus(ctx, "missing", inquiry.StatusClosed)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInquiry_MissingStatusCountsAsNew(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(inquiry.Collection, "q1", store.Patch{"name": "Kiran"})
	svc := NewInquiryService(mem, nil)

	_, err := svc.UpdateStatus(context.Background(), "q1", inquiry.StatusNew)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	in, err := svc.UpdateStatus(context.Background(), "q1", inquiry.StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, inquiry.StatusClosed, in.Status)
}

func TestInquiry_ListNewestFirst(t *testing.T) {
	mem := store.NewMemory()
	mem.Seed(inquiry.Collection, "old", store.Patch{"createdAt": date(2024, 1, 1)})
	mem.Seed(inquiry.Collection, "new", store.Patch{"createdAt": date(2024, 2, 1)})

	list, err := NewInquiryService(mem, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
}
