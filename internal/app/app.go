package app

import (
	"github.com/rs/zerolog"
)

// App wires the scheduling core together. Handlers hang off it the same
// way store methods hang off Store.
type App struct {
	Slots       SlotStore
	Candidates  CandidateStore
	Credentials CredentialStore
	Settings    SettingsStore
	Meetings    MeetingStore

	Tokens    *TokenManager
	Providers []CalendarProvider
	Meeting   MeetingProvider
	Mailer    Mailer

	Log zerolog.Logger
}
