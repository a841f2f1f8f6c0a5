package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CalendarProvider is one external calendar system. Implementations build
// their own payload from the provider-independent Event and return the
// provider-assigned event id. A 401-class response must come back wrapped
// in ErrUnauthorized.
type CalendarProvider interface {
	Name() Provider
	CreateEvent(ctx context.Context, accessToken string, ev Event) (string, error)
}

// SyncMeetingToCalendars pushes the meeting to every provider the owner
// has enabled. Each provider's outcome is independent: a missing
// credential or a failed push is recorded for that provider and the loop
// moves on. The caller treats the result as telemetry, never as a gate.
func (a *App) SyncMeetingToCalendars(ctx context.Context, m *Meeting, ownerID string) map[Provider]SyncOutcome {
	out := make(map[Provider]SyncOutcome, len(a.Providers))

	settings, err := a.Settings.GetOwnerSettings(ctx, ownerID)
	if err != nil {
		a.Log.Warn().Err(err).Str("owner", ownerID).Msg("owner settings unavailable, nothing synced")
		return out
	}

	ev := eventForMeeting(m, settings)

	for _, p := range a.Providers {
		name := p.Name()
		if !settings.SyncEnabled(name) {
			continue
		}

		outcome := a.pushEvent(ctx, p, ownerID, ev)
		out[name] = outcome

		if err := a.Meetings.SetSyncResult(ctx, m.ID, name, outcome); err != nil {
			a.Log.Error().Err(err).Str("meeting", m.ID.String()).Str("provider", string(name)).
				Msg("persisting sync outcome failed")
		}

		if outcome.Err != "" {
			a.Log.Warn().Str("owner", ownerID).Str("provider", string(name)).
				Str("error", outcome.Err).Msg("calendar push failed")
		} else {
			a.Log.Info().Str("owner", ownerID).Str("provider", string(name)).
				Str("event_id", outcome.EventID).Msg("calendar event created")
		}
	}

	return out
}

// pushEvent runs one provider push under the one-shot reactive refresh
// protocol: on a 401 the token is force-refreshed exactly once and the
// call retried exactly once. A second 401 is terminal and invalidates the
// credential so the owner is prompted to reconnect.
func (a *App) pushEvent(ctx context.Context, p CalendarProvider, ownerID string, ev Event) SyncOutcome {
	name := p.Name()

	token, err := a.Tokens.GetAccessToken(ctx, ownerID, name, false)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return SyncOutcome{Err: fmt.Sprintf("%s not connected", name)}
		}
		return SyncOutcome{Err: err.Error()}
	}

	eventID, err := p.CreateEvent(ctx, token, ev)
	if err == nil {
		return SyncOutcome{EventID: eventID}
	}
	if !errors.Is(err, ErrUnauthorized) {
		return SyncOutcome{Err: err.Error()}
	}

	token, err = a.Tokens.GetAccessToken(ctx, ownerID, name, true)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return SyncOutcome{Err: fmt.Sprintf("%s not connected", name)}
		}
		return SyncOutcome{Err: err.Error()}
	}

	eventID, err = p.CreateEvent(ctx, token, ev)
	if err == nil {
		return SyncOutcome{EventID: eventID}
	}
	if errors.Is(err, ErrUnauthorized) {
		a.Tokens.Invalidate(ctx, ownerID, name)
	}
	return SyncOutcome{Err: err.Error()}
}

func eventForMeeting(m *Meeting, settings *OwnerSettings) Event {
	description := m.Description
	if m.JoinURL != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Join: " + m.JoinURL
	}

	tz := settings.Timezone
	if tz == "" {
		tz = "UTC"
	}
	start := m.StartAt.In(settings.Location())

	return Event{
		Title:         m.Title,
		Description:   description,
		Start:         start,
		End:           start.Add(time.Duration(m.DurationMins) * time.Minute),
		Timezone:      tz,
		AttendeeEmail: m.AttendeeEmail,
	}
}
