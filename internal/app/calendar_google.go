package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleCalendar pushes events to the owner's primary Google calendar.
type GoogleCalendar struct {
	timeout time.Duration
}

func NewGoogleCalendar(timeout time.Duration) *GoogleCalendar {
	return &GoogleCalendar{timeout: timeout}
}

func (g *GoogleCalendar) Name() Provider { return ProviderGoogle }

func (g *GoogleCalendar) CreateEvent(ctx context.Context, accessToken string, ev Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	srv, err := calendar.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})))
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	event := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
	}
	if ev.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}

	created, err := srv.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 401 {
			return "", fmt.Errorf("google event insert: %w", ErrUnauthorized)
		}
		return "", fmt.Errorf("google event insert: %w", err)
	}
	return created.Id, nil
}
