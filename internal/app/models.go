package app

import (
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderOutlook Provider = "outlook"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// InterviewSlot is one bookable interval. A slot only ever moves
// available -> booked; deletion is allowed only while available.
type InterviewSlot struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      string     `json:"owner_id"`
	SlotDate     time.Time  `json:"slot_date"`
	StartTime    string     `json:"start_time"` // "HH:MM"
	DurationMins int        `json:"duration_minutes"`
	JoinURL      string     `json:"join_url,omitempty"`
	Status       SlotStatus `json:"status"`
	CandidateID  *uuid.UUID `json:"candidate_id,omitempty"`
	BookedAt     *time.Time `json:"booked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
}

type Candidate struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	SchedulingToken string     `json:"-"`
	Status          string     `json:"status"`
	SlotID          *uuid.UUID `json:"slot_id,omitempty"`
	MeetingLink     string     `json:"meeting_link,omitempty"`
}

// CalendarAccount is the stored OAuth credential for one (owner, provider)
// pair. Token columns hold vault blobs, never plaintext.
type CalendarAccount struct {
	OwnerID      string    `json:"owner_id"`
	Provider     Provider  `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    int64     `json:"expires_at"` // epoch seconds
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// OwnerSettings is the per-call lookup context for an owner: timezone and
// which calendar providers they have switched on. The sync flags are
// independent of whether a credential exists.
type OwnerSettings struct {
	OwnerID            string `json:"owner_id"`
	Email              string `json:"email"`
	Timezone           string `json:"timezone"`
	GoogleSyncEnabled  bool   `json:"google_sync_enabled"`
	OutlookSyncEnabled bool   `json:"outlook_sync_enabled"`
}

func (s *OwnerSettings) SyncEnabled(p Provider) bool {
	switch p {
	case ProviderGoogle:
		return s.GoogleSyncEnabled
	case ProviderOutlook:
		return s.OutlookSyncEnabled
	}
	return false
}

// Location resolves the owner's timezone, falling back to UTC.
func (s *OwnerSettings) Location() *time.Location {
	if s.Timezone != "" {
		if loc, err := time.LoadLocation(s.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Meeting is a confirmed interview to be pushed to external calendars.
type Meeting struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartAt       time.Time `json:"start_at"`
	DurationMins  int       `json:"duration_minutes"`
	JoinURL       string    `json:"join_url,omitempty"`
	AttendeeEmail string    `json:"attendee_email"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// SyncOutcome records one provider's result for one sync attempt. Exactly
// one of EventID / Err is set; outcomes are independent per provider and
// overwritten on resync, never rolled back.
type SyncOutcome struct {
	EventID string `json:"event_id,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Event is the provider-independent payload handed to calendar providers.
type Event struct {
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	Timezone      string
	AttendeeEmail string
	Location      string
}

// MeetingResource is what the meeting provider returns for one meeting.
type MeetingResource struct {
	ID       string `json:"id"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}
