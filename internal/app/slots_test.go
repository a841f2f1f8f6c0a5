package app

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateSlotsBoundary(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)

	// 2026-09-07 is a Monday.
	res, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
		StartDate:    date(2026, time.September, 7),
		StartTime:    "09:00",
		EndTime:      "10:00",
		DurationMins: 30,
		Weekdays:     []time.Weekday{time.Monday},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.CreatedCount)

	slots, err := store.ListSlots(context.Background(), "owner-1")
	require.NoError(t, err)
	var starts []string
	for _, s := range slots {
		starts = append(starts, s.StartTime)
	}
	sort.Strings(starts)
	assert.Equal(t, []string{"09:00", "09:30"}, starts)
}

func TestGenerateSlotsNoPartialTrailingSlot(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)

	// 45-minute slots in a 60-minute window: only one fits.
	res, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
		StartDate:    date(2026, time.September, 7),
		StartTime:    "09:00",
		EndTime:      "10:00",
		DurationMins: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CreatedCount)
}

func TestGenerateSlotsWeekdayFilter(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)

	// Mon 2026-09-07 through Sun 2026-09-13, Tuesdays and Thursdays only.
	res, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
		StartDate:    date(2026, time.September, 7),
		EndDate:      date(2026, time.September, 13),
		StartTime:    "10:00",
		EndTime:      "11:00",
		DurationMins: 60,
		Weekdays:     []time.Weekday{time.Tuesday, time.Thursday},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.CreatedCount)

	slots, _ := store.ListSlots(context.Background(), "owner-1")
	for _, s := range slots {
		wd := s.SlotDate.Weekday()
		assert.True(t, wd == time.Tuesday || wd == time.Thursday, "unexpected weekday %s", wd)
	}
}

func TestGenerateSlotsEndBeforeStartYieldsNothing(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)

	res, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
		StartDate:    date(2026, time.September, 10),
		EndDate:      date(2026, time.September, 8),
		StartTime:    "09:00",
		EndTime:      "17:00",
		DurationMins: 30,
	})
	require.NoError(t, err)
	assert.Zero(t, res.CreatedCount)
}

func TestGenerateSlotsRejectsNonPositiveDuration(t *testing.T) {
	a := newTestApp(t, newFakeStore(), nil)

	for _, d := range []int{0, -15} {
		_, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
			StartDate:    date(2026, time.September, 7),
			StartTime:    "09:00",
			EndTime:      "17:00",
			DurationMins: d,
		})
		require.Error(t, err, "duration %d must be rejected", d)
	}
}

func TestGenerateSlotsProvisioningPartialFailure(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)
	a.Meeting = &fakeMeetingProvider{fn: func(call int) (*MeetingResource, error) {
		if call%2 == 1 {
			return nil, errors.New("zoom: rate limited")
		}
		return &MeetingResource{ID: "m", JoinURL: "https://zoom.example/j/1"}, nil
	}}

	// Four 60-minute slots, provisioning fails on every second call.
	res, err := a.GenerateSlots(context.Background(), "owner-1", GenerateSlotsRequest{
		StartDate:         date(2026, time.September, 7),
		StartTime:         "09:00",
		EndTime:           "13:00",
		DurationMins:      60,
		ProvisionMeetings: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.CreatedCount, "failed provisioning must not drop slots")
	assert.True(t, res.ProvisioningEnabled)
	assert.Equal(t, 2, res.ProvisioningFailures)
	assert.Contains(t, res.SampleError, "rate limited")

	withLink := 0
	slots, _ := store.ListSlots(context.Background(), "owner-1")
	for _, s := range slots {
		if s.JoinURL != "" {
			withLink++
		}
	}
	assert.Equal(t, 2, withLink)
}

func TestDeleteSlotOnlyWhileAvailable(t *testing.T) {
	store := newFakeStore()
	a := newTestApp(t, store, nil)
	ctx := context.Background()

	slot := &InterviewSlot{OwnerID: "owner-1", SlotDate: date(2026, time.September, 7), StartTime: "09:00", DurationMins: 30}
	require.NoError(t, store.InsertSlot(ctx, slot))

	cand := &Candidate{ID: newUUID(t), OwnerID: "owner-1", Email: "c@example.com", SchedulingToken: "tok"}
	store.candidates[cand.ID] = cand

	_, err := a.BookSlot(ctx, slot.ID, "tok")
	require.NoError(t, err)

	err = a.DeleteSlot(ctx, "owner-1", slot.ID)
	assert.ErrorIs(t, err, ErrNotAvailable, "booked slot must not be deletable")
}
