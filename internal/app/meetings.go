package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// MeetingProvider provisions one external meeting resource (a video call)
// per request. Failures are per-call; bulk callers aggregate them.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time, durationMins int, ownerID string) (*MeetingResource, error)
}

// ZoomMeetings is a server-to-server Zoom app client. The account-level
// access token comes from the client-credentials flow and is cached by the
// oauth2 token source.
type ZoomMeetings struct {
	baseURL string
	client  *http.Client
}

func NewZoomMeetings(apiBase, accountID, clientID, clientSecret string, timeout time.Duration) *ZoomMeetings {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://zoom.us/oauth/token",
		EndpointParams: map[string][]string{
			"grant_type": {"account_credentials"},
			"account_id": {accountID},
		},
	}
	client := conf.Client(context.Background())
	client.Timeout = timeout

	return &ZoomMeetings{baseURL: apiBase, client: client}
}

func (z *ZoomMeetings) CreateMeeting(ctx context.Context, topic string, start time.Time, durationMins int, ownerID string) (*MeetingResource, error) {
	body, err := json.Marshal(map[string]any{
		"topic":      topic,
		"type":       2, // scheduled meeting
		"start_time": start.UTC().Format("2006-01-02T15:04:05Z"),
		"duration":   durationMins,
		"settings": map[string]any{
			"join_before_host": false,
			"waiting_room":     true,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+"/users/me/meetings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("create meeting: status %d: %s", resp.StatusCode, string(snippet))
	}

	var created struct {
		ID       json.Number `json:"id"`
		JoinURL  string      `json:"join_url"`
		StartURL string      `json:"start_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("create meeting: decode response: %w", err)
	}
	return &MeetingResource{ID: created.ID.String(), JoinURL: created.JoinURL, StartURL: created.StartURL}, nil
}

// ScheduleMeetingRequest is the ad-hoc path: an owner books a meeting
// directly, outside the self-service slot flow.
type ScheduleMeetingRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartAt          time.Time `json:"start_at"`
	DurationMins     int       `json:"duration_minutes"`
	AttendeeEmail    string    `json:"attendee_email"`
	ProvisionMeeting bool      `json:"provision_meeting"`
}

type ScheduleMeetingResult struct {
	Meeting *Meeting                 `json:"meeting"`
	Sync    map[Provider]SyncOutcome `json:"sync"`
}

// ScheduleMeeting creates a meeting record, optionally provisioning a
// meeting resource, then fans it out to the owner's calendars. Sync
// failures do not fail the scheduling.
func (a *App) ScheduleMeeting(ctx context.Context, ownerID string, req ScheduleMeetingRequest) (*ScheduleMeetingResult, error) {
	if req.DurationMins <= 0 {
		return nil, fmt.Errorf("duration must be a positive number of minutes, got %d", req.DurationMins)
	}
	if req.Title == "" {
		req.Title = "Interview"
	}

	m := &Meeting{
		OwnerID:       ownerID,
		Title:         req.Title,
		Description:   req.Description,
		StartAt:       req.StartAt,
		DurationMins:  req.DurationMins,
		AttendeeEmail: req.AttendeeEmail,
	}

	if req.ProvisionMeeting && a.Meeting != nil {
		resource, err := a.Meeting.CreateMeeting(ctx, req.Title, req.StartAt, req.DurationMins, ownerID)
		if err != nil {
			a.Log.Warn().Err(err).Str("owner", ownerID).Msg("meeting provisioning failed, scheduling without link")
		} else {
			m.JoinURL = resource.JoinURL
		}
	}

	if err := a.Meetings.InsertMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}

	outcomes := a.SyncMeetingToCalendars(ctx, m, ownerID)
	return &ScheduleMeetingResult{Meeting: m, Sync: outcomes}, nil
}
