package runtime_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"support-chat/errors"
	"support-chat/mocks"
	"support-chat/runtime"
)

func TestPresenceTracker_AvailableStaffFiltersOfflineAndBusy(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().UpsertPresence(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	tracker := runtime.NewPresenceTracker(slog.Default(), storage)
	ctx := context.Background()

	tracker.SetStatus(ctx, "staff-1", true, true)
	tracker.SetStatus(ctx, "staff-2", true, false) // online but busy
	tracker.SetStatus(ctx, "staff-3", false, true) // marked available but offline

	available := tracker.AvailableStaff(ctx)
	req.Len(available, 1)
	req.Equal("staff-1", available[0].StaffID)
}

func TestPresenceTracker_StorageFailureKeepsInMemoryState(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().UpsertPresence(gomock.Any(), gomock.Any()).Return(errors.ErrWorkerPanic)

	tracker := runtime.NewPresenceTracker(slog.Default(), storage)

	// When the persistence mirror fails
	record := tracker.SetStatus(context.Background(), "staff-1", true, true)

	// Then the in-memory view still answers
	req.True(record.Online)
	req.Len(tracker.AvailableStaff(context.Background()), 1)
}

func TestPresenceTracker_ToggleBackOffline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().UpsertPresence(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	tracker := runtime.NewPresenceTracker(slog.Default(), storage)
	ctx := context.Background()

	tracker.SetStatus(ctx, "staff-1", true, true)
	record := tracker.SetStatus(ctx, "staff-1", false, false)

	req.False(record.Online)
	req.Empty(tracker.AvailableStaff(ctx))
}
