package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookSlot claims a slot for the candidate behind the scheduling token.
// Steps 1-3 are all-or-nothing: the claim is a single conditional write
// whose row-match count decides the winner, so under concurrent requests
// exactly one caller succeeds and the rest see ErrNotAvailable. Calendar
// sync and the confirmation mail run after the claim commits and never
// un-book the slot.
func (a *App) BookSlot(ctx context.Context, slotID uuid.UUID, schedulingToken string) (*InterviewSlot, error) {
	cand, err := a.Candidates.GetCandidateByToken(ctx, schedulingToken)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("resolve scheduling token: %w", err)
	}

	slot, err := a.Slots.GetSlot(ctx, slotID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.Status != SlotAvailable {
		return nil, ErrNotAvailable
	}

	now := time.Now().UTC()
	claimed, err := a.Slots.ClaimSlot(ctx, slotID, cand.ID, slot.JoinURL, now)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	if !claimed {
		return nil, ErrNotAvailable
	}

	slot.Status = SlotBooked
	slot.CandidateID = &cand.ID
	slot.BookedAt = &now

	a.Log.Info().Str("owner", slot.OwnerID).Str("slot", slotID.String()).
		Str("candidate", cand.ID.String()).Msg("slot booked")

	// Best-effort from here on.
	a.afterBooking(ctx, slot, cand)

	return slot, nil
}

func (a *App) afterBooking(ctx context.Context, slot *InterviewSlot, cand *Candidate) {
	settings, err := a.Settings.GetOwnerSettings(ctx, slot.OwnerID)
	if err != nil {
		a.Log.Warn().Err(err).Str("owner", slot.OwnerID).
			Msg("owner settings unavailable, skipping calendar sync")
		settings = &OwnerSettings{OwnerID: slot.OwnerID, Timezone: "UTC"}
	}

	meeting := meetingForSlot(slot, cand, settings)
	if err := a.Meetings.InsertMeeting(ctx, meeting); err != nil {
		a.Log.Error().Err(err).Str("slot", slot.ID.String()).Msg("recording meeting failed")
	} else {
		a.SyncMeetingToCalendars(ctx, meeting, slot.OwnerID)
	}

	if a.Mailer != nil {
		subject := fmt.Sprintf("Interview confirmed: %s", meeting.StartAt.Format("Mon Jan 2, 15:04 MST"))
		body := confirmationBody(cand, meeting)
		if err := a.Mailer.Send(ctx, cand.Email, subject, body); err != nil {
			a.Log.Warn().Err(err).Str("candidate", cand.ID.String()).
				Msg("confirmation email failed, booking stands")
		}
	}
}

// meetingForSlot computes the meeting instant as slot date + start time in
// the owner's configured timezone.
func meetingForSlot(slot *InterviewSlot, cand *Candidate, settings *OwnerSettings) *Meeting {
	start := slotStartIn(slot, settings.Location())
	title := fmt.Sprintf("Interview with %s", cand.Name)
	if cand.Name == "" {
		title = fmt.Sprintf("Interview with %s", cand.Email)
	}
	return &Meeting{
		OwnerID:       slot.OwnerID,
		Title:         title,
		Description:   "Scheduled via self-service booking.",
		StartAt:       start,
		DurationMins:  slot.DurationMins,
		JoinURL:       slot.JoinURL,
		AttendeeEmail: cand.Email,
	}
}

func slotStartIn(slot *InterviewSlot, loc *time.Location) time.Time {
	tod, err := parseHHMM(slot.StartTime)
	if err != nil {
		return slot.SlotDate
	}
	y, m, d := slot.SlotDate.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc)
}

func confirmationBody(cand *Candidate, m *Meeting) string {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your interview is confirmed for <strong>%s</strong> (%d minutes).</p>",
		cand.Name, m.StartAt.Format("Monday, January 2 at 15:04 MST"), m.DurationMins)
	if m.JoinURL != "" {
		body += fmt.Sprintf(`<p>Join link: <a href="%s">%s</a></p>`, m.JoinURL, m.JoinURL)
	}
	return body
}

// AvailableSlotsForToken is the candidate's read view: the open slots of
// the owner who invited them.
func (a *App) AvailableSlotsForToken(ctx context.Context, schedulingToken string) ([]InterviewSlot, error) {
	cand, err := a.Candidates.GetCandidateByToken(ctx, schedulingToken)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return a.Slots.ListAvailableSlots(ctx, cand.OwnerID)
}

// InviteCandidate lazily issues the candidate's scheduling token. The
// token is issued once and stays stable for the candidate's entire
// scheduling window.
func (a *App) InviteCandidate(ctx context.Context, ownerID string, candidateID uuid.UUID) (string, error) {
	token, err := a.Candidates.EnsureSchedulingToken(ctx, ownerID, candidateID, uuid.NewString())
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("issue scheduling token: %w", err)
	}
	return token, nil
}
