package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const graphEventsURL = "https://graph.microsoft.com/v1.0/me/events"

// OutlookCalendar pushes events to the owner's Outlook calendar through
// the Microsoft Graph events endpoint.
type OutlookCalendar struct {
	baseURL string
	client  *http.Client
}

func NewOutlookCalendar(timeout time.Duration) *OutlookCalendar {
	return &OutlookCalendar{
		baseURL: graphEventsURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OutlookCalendar) Name() Provider { return ProviderOutlook }

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphAttendee struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
	Type string `json:"type"`
}

type graphEvent struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start     graphDateTime   `json:"start"`
	End       graphDateTime   `json:"end"`
	Attendees []graphAttendee `json:"attendees,omitempty"`
	Location  *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
}

func (o *OutlookCalendar) CreateEvent(ctx context.Context, accessToken string, ev Event) (string, error) {
	payload := graphEvent{Subject: ev.Title}
	payload.Body.ContentType = "HTML"
	payload.Body.Content = ev.Description
	payload.Start = graphDateTime{DateTime: ev.Start.Format("2006-01-02T15:04:05"), TimeZone: ev.Timezone}
	payload.End = graphDateTime{DateTime: ev.End.Format("2006-01-02T15:04:05"), TimeZone: ev.Timezone}
	if ev.AttendeeEmail != "" {
		var att graphAttendee
		att.EmailAddress.Address = ev.AttendeeEmail
		att.Type = "required"
		payload.Attendees = append(payload.Attendees, att)
	}
	if ev.Location != "" {
		payload.Location = &struct {
			DisplayName string `json:"displayName"`
		}{DisplayName: ev.Location}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("outlook event create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("outlook event create: %w", ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("outlook event create: status %d: %s", resp.StatusCode, string(snippet))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("outlook event create: decode response: %w", err)
	}
	return created.ID, nil
}
