package app

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store interfaces sit between the scheduling core and Postgres so the
// state machines can be exercised against fakes. Store (db.go) implements
// all of them on a pgx pool.

type SlotStore interface {
	InsertSlot(ctx context.Context, s *InterviewSlot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*InterviewSlot, error)
	ListSlots(ctx context.Context, ownerID string) ([]InterviewSlot, error)
	ListAvailableSlots(ctx context.Context, ownerID string) ([]InterviewSlot, error)

	// ClaimSlot performs the available -> booked transition as a single
	// conditional write and, in the same transaction, marks the candidate
	// scheduled. It reports whether the claim actually matched a row;
	// false means another candidate won.
	ClaimSlot(ctx context.Context, slotID, candidateID uuid.UUID, meetingLink string, at time.Time) (bool, error)

	// DeleteAvailableSlot deletes only while the slot is still available.
	DeleteAvailableSlot(ctx context.Context, ownerID string, id uuid.UUID) (bool, error)
}

type CandidateStore interface {
	GetCandidate(ctx context.Context, ownerID string, id uuid.UUID) (*Candidate, error)
	GetCandidateByToken(ctx context.Context, token string) (*Candidate, error)

	// EnsureSchedulingToken sets the token only if none is issued yet and
	// returns whichever token the candidate ends up with.
	EnsureSchedulingToken(ctx context.Context, ownerID string, id uuid.UUID, token string) (string, error)
}

type CredentialStore interface {
	GetCredential(ctx context.Context, ownerID string, p Provider) (*CalendarAccount, error)
	UpsertCredential(ctx context.Context, a *CalendarAccount) error
	UpdateTokens(ctx context.Context, ownerID string, p Provider, sealedAccess, sealedRefresh string, expiresAt int64) error
	DeleteCredential(ctx context.Context, ownerID string, p Provider) error
}

type SettingsStore interface {
	GetOwnerSettings(ctx context.Context, ownerID string) (*OwnerSettings, error)
}

type MeetingStore interface {
	InsertMeeting(ctx context.Context, m *Meeting) error
	SetSyncResult(ctx context.Context, meetingID uuid.UUID, p Provider, outcome SyncOutcome) error
}
