package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateSlotsRequest describes one bulk generation run.
type GenerateSlotsRequest struct {
	StartDate         time.Time
	EndDate           time.Time // zero value means single day (StartDate)
	StartTime         string    // "HH:MM", inclusive
	EndTime           string    // "HH:MM", exclusive
	DurationMins      int
	Weekdays          []time.Weekday // empty means every day in range
	ProvisionMeetings bool
}

// GenerateSlotsResult reports what the run produced. Provisioning failures
// are aggregated, not fatal: the affected slots exist without a join link.
type GenerateSlotsResult struct {
	CreatedCount         int    `json:"created_count"`
	ProvisioningEnabled  bool   `json:"provisioning_enabled"`
	ProvisioningFailures int    `json:"provisioning_failures,omitempty"`
	SampleError          string `json:"sample_error,omitempty"`
}

// GenerateSlots expands the request into discrete bookable slots: iterate
// the date range, skip disallowed weekdays, chunk the daily window in
// fixed duration steps. A trailing partial slot is never emitted. A run
// over an already-generated range simply adds more slots; overlap is not
// detected.
func (a *App) GenerateSlots(ctx context.Context, ownerID string, req GenerateSlotsRequest) (*GenerateSlotsResult, error) {
	if req.DurationMins <= 0 {
		return nil, fmt.Errorf("duration must be a positive number of minutes, got %d", req.DurationMins)
	}

	startTOD, err := parseHHMM(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time: %w", err)
	}
	endTOD, err := parseHHMM(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time: %w", err)
	}
	if !endTOD.After(startTOD) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}

	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = req.StartDate
	}

	allowed := map[time.Weekday]bool{}
	for _, wd := range req.Weekdays {
		allowed[wd] = true
	}

	res := &GenerateSlotsResult{ProvisioningEnabled: req.ProvisionMeetings}
	slotLen := time.Duration(req.DurationMins) * time.Minute

	startDay := req.StartDate.Truncate(24 * time.Hour)
	endDay := endDate.Truncate(24 * time.Hour)

	for day := startDay; !day.After(endDay); day = day.Add(24 * time.Hour) {
		if len(allowed) > 0 && !allowed[day.Weekday()] {
			continue
		}

		year, month, dayNum := day.Date()
		windowStart := time.Date(year, month, dayNum, startTOD.Hour(), startTOD.Minute(), 0, 0, time.UTC)
		windowEnd := time.Date(year, month, dayNum, endTOD.Hour(), endTOD.Minute(), 0, 0, time.UTC)

		for s := windowStart; s.Add(slotLen).Equal(windowEnd) || s.Add(slotLen).Before(windowEnd); s = s.Add(slotLen) {
			slot := &InterviewSlot{
				OwnerID:      ownerID,
				SlotDate:     day,
				StartTime:    s.Format("15:04"),
				DurationMins: req.DurationMins,
			}

			if req.ProvisionMeetings && a.Meeting != nil {
				resource, err := a.Meeting.CreateMeeting(ctx, "Interview", s, req.DurationMins, ownerID)
				if err != nil {
					res.ProvisioningFailures++
					if res.SampleError == "" {
						res.SampleError = err.Error()
					}
					a.Log.Warn().Err(err).Str("owner", ownerID).Time("slot_start", s).
						Msg("meeting provisioning failed, creating slot without link")
				} else {
					slot.JoinURL = resource.JoinURL
				}
			}

			if err := a.Slots.InsertSlot(ctx, slot); err != nil {
				return nil, fmt.Errorf("insert slot: %w", err)
			}
			res.CreatedCount++
		}
	}

	return res, nil
}

// DeleteSlot removes a slot, permitted only while it is still available.
func (a *App) DeleteSlot(ctx context.Context, ownerID string, id uuid.UUID) error {
	deleted, err := a.Slots.DeleteAvailableSlot(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotAvailable
	}
	return nil
}

func parseHHMM(s string) (time.Time, error) {
	// Take first 5 chars "HH:MM"
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	s = s[:5] // "09:00:00.000000" -> "09:00"
	tt, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	return tt, nil
}
