package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres implementation of every store interface.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

// ---- slots ----

func (s *Store) InsertSlot(ctx context.Context, sl *InterviewSlot) error {
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	now := time.Now().UTC()
	q := `INSERT INTO interview_slots
	      (id, owner_id, slot_date, start_time, duration_minutes, join_url, status, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.DB.Exec(ctx, q,
		sl.ID, sl.OwnerID, sl.SlotDate, sl.StartTime, sl.DurationMins, sl.JoinURL, string(SlotAvailable), now)
	if err != nil {
		return err
	}
	sl.Status = SlotAvailable
	sl.CreatedAt = now
	return nil
}

func (s *Store) GetSlot(ctx context.Context, id uuid.UUID) (*InterviewSlot, error) {
	q := `SELECT id, owner_id, slot_date, start_time, duration_minutes, join_url, status, candidate_id, booked_at, created_at
	      FROM interview_slots WHERE id=$1`
	var sl InterviewSlot
	err := s.DB.QueryRow(ctx, q, id).Scan(
		&sl.ID, &sl.OwnerID, &sl.SlotDate, &sl.StartTime, &sl.DurationMins,
		&sl.JoinURL, &sl.Status, &sl.CandidateID, &sl.BookedAt, &sl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (s *Store) ListSlots(ctx context.Context, ownerID string) ([]InterviewSlot, error) {
	q := `SELECT id, owner_id, slot_date, start_time, duration_minutes, join_url, status, candidate_id, booked_at, created_at
	      FROM interview_slots WHERE owner_id=$1 ORDER BY slot_date, start_time`
	return s.scanSlots(ctx, q, ownerID)
}

func (s *Store) ListAvailableSlots(ctx context.Context, ownerID string) ([]InterviewSlot, error) {
	q := `SELECT id, owner_id, slot_date, start_time, duration_minutes, join_url, status, candidate_id, booked_at, created_at
	      FROM interview_slots WHERE owner_id=$1 AND status='available' ORDER BY slot_date, start_time`
	return s.scanSlots(ctx, q, ownerID)
}

func (s *Store) scanSlots(ctx context.Context, q string, args ...any) ([]InterviewSlot, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InterviewSlot
	for rows.Next() {
		var sl InterviewSlot
		if err := rows.Scan(&sl.ID, &sl.OwnerID, &sl.SlotDate, &sl.StartTime, &sl.DurationMins,
			&sl.JoinURL, &sl.Status, &sl.CandidateID, &sl.BookedAt, &sl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// ClaimSlot is the one place the available -> booked transition happens.
// The UPDATE is guarded by the same predicate used to select the slot and
// the row-match count decides the winner under concurrent claims.
func (s *Store) ClaimSlot(ctx context.Context, slotID, candidateID uuid.UUID, meetingLink string, at time.Time) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE interview_slots SET status='booked', candidate_id=$2, booked_at=$3
		 WHERE id=$1 AND status='available'`,
		slotID, candidateID, at.UTC())
	if err != nil {
		return false, err
	}
	if res.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE candidates SET status='scheduled', slot_id=$2, meeting_link=$3 WHERE id=$1`,
		candidateID, slotID, meetingLink)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteAvailableSlot(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	res, err := s.DB.Exec(ctx,
		`DELETE FROM interview_slots WHERE id=$1 AND owner_id=$2 AND status='available'`,
		id, ownerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ---- candidates ----

func (s *Store) GetCandidate(ctx context.Context, ownerID string, id uuid.UUID) (*Candidate, error) {
	q := `SELECT id, owner_id, email, name, COALESCE(scheduling_token,''), status, slot_id, COALESCE(meeting_link,'')
	      FROM candidates WHERE id=$1 AND owner_id=$2`
	return s.scanCandidate(s.DB.QueryRow(ctx, q, id, ownerID))
}

func (s *Store) GetCandidateByToken(ctx context.Context, token string) (*Candidate, error) {
	q := `SELECT id, owner_id, email, name, COALESCE(scheduling_token,''), status, slot_id, COALESCE(meeting_link,'')
	      FROM candidates WHERE scheduling_token=$1`
	return s.scanCandidate(s.DB.QueryRow(ctx, q, token))
}

func (s *Store) scanCandidate(row pgx.Row) (*Candidate, error) {
	var c Candidate
	err := row.Scan(&c.ID, &c.OwnerID, &c.Email, &c.Name, &c.SchedulingToken, &c.Status, &c.SlotID, &c.MeetingLink)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureSchedulingToken issues the token at most once; a candidate keeps
// the same token for their entire scheduling window.
func (s *Store) EnsureSchedulingToken(ctx context.Context, ownerID string, id uuid.UUID, token string) (string, error) {
	q := `UPDATE candidates SET scheduling_token=$3
	      WHERE id=$1 AND owner_id=$2 AND (scheduling_token IS NULL OR scheduling_token='')
	      RETURNING scheduling_token`
	var issued string
	err := s.DB.QueryRow(ctx, q, id, ownerID, token).Scan(&issued)
	if err == nil {
		return issued, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	// Already issued (or no such candidate); read back what is there.
	c, err := s.GetCandidate(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return c.SchedulingToken, nil
}

// ---- credentials ----

func (s *Store) GetCredential(ctx context.Context, ownerID string, p Provider) (*CalendarAccount, error) {
	q := `SELECT owner_id, provider, access_token, refresh_token, expires_at, created_at, updated_at
	      FROM calendar_accounts WHERE owner_id=$1 AND provider=$2`
	var a CalendarAccount
	err := s.DB.QueryRow(ctx, q, ownerID, string(p)).Scan(
		&a.OwnerID, &a.Provider, &a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) UpsertCredential(ctx context.Context, a *CalendarAccount) error {
	now := time.Now().UTC()
	q := `INSERT INTO calendar_accounts (owner_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$6)
	      ON CONFLICT (owner_id, provider) DO UPDATE
	      SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token,
	          expires_at=EXCLUDED.expires_at, updated_at=EXCLUDED.updated_at`
	_, err := s.DB.Exec(ctx, q, a.OwnerID, string(a.Provider), a.AccessToken, a.RefreshToken, a.ExpiresAt, now)
	return err
}

func (s *Store) UpdateTokens(ctx context.Context, ownerID string, p Provider, sealedAccess, sealedRefresh string, expiresAt int64) error {
	q := `UPDATE calendar_accounts SET access_token=$3, refresh_token=$4, expires_at=$5, updated_at=$6
	      WHERE owner_id=$1 AND provider=$2`
	res, err := s.DB.Exec(ctx, q, ownerID, string(p), sealedAccess, sealedRefresh, expiresAt, time.Now().UTC())
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCredential(ctx context.Context, ownerID string, p Provider) error {
	_, err := s.DB.Exec(ctx,
		`DELETE FROM calendar_accounts WHERE owner_id=$1 AND provider=$2`, ownerID, string(p))
	return err
}

// ---- owner settings ----

func (s *Store) GetOwnerSettings(ctx context.Context, ownerID string) (*OwnerSettings, error) {
	q := `SELECT owner_id, COALESCE(email,''), COALESCE(timezone,'UTC'), google_sync_enabled, outlook_sync_enabled
	      FROM owner_settings WHERE owner_id=$1`
	var st OwnerSettings
	err := s.DB.QueryRow(ctx, q, ownerID).Scan(
		&st.OwnerID, &st.Email, &st.Timezone, &st.GoogleSyncEnabled, &st.OutlookSyncEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ---- meetings ----

func (s *Store) InsertMeeting(ctx context.Context, m *Meeting) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	q := `INSERT INTO meetings (id, owner_id, title, description, start_at, duration_minutes, join_url, attendee_email, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.DB.Exec(ctx, q, m.ID, m.OwnerID, m.Title, m.Description,
		m.StartAt.UTC(), m.DurationMins, m.JoinURL, m.AttendeeEmail, now)
	if err != nil {
		return err
	}
	m.CreatedAt = now
	return nil
}

// SetSyncResult overwrites the provider's column pair on each attempt;
// per-provider outcomes are final for that attempt, never rolled back.
func (s *Store) SetSyncResult(ctx context.Context, meetingID uuid.UUID, p Provider, outcome SyncOutcome) error {
	var q string
	switch p {
	case ProviderGoogle:
		q = `UPDATE meetings SET google_event_id=$2, google_sync_error=$3 WHERE id=$1`
	case ProviderOutlook:
		q = `UPDATE meetings SET outlook_event_id=$2, outlook_sync_error=$3 WHERE id=$1`
	default:
		return nil
	}
	_, err := s.DB.Exec(ctx, q, meetingID, outcome.EventID, outcome.Err)
	return err
}
