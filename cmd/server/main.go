package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"recruiting-scheduler/internal/app"
	"recruiting-scheduler/internal/config"
	"recruiting-scheduler/internal/server"
	"recruiting-scheduler/internal/vault"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer pool.Close()

	v, err := vault.New(cfg.VaultKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault key")
	}

	store := app.NewStore(pool)
	oauthClients := app.NewOAuthClients(cfg)
	tokens := app.NewTokenManager(store, v, oauthClients.RefreshFunc(),
		cfg.TokenFreshnessBuffer, cfg.HTTPTimeout, logger)
	defer tokens.Close()

	appInstance := &app.App{
		Slots:       store,
		Candidates:  store,
		Credentials: store,
		Settings:    store,
		Meetings:    store,
		Tokens:      tokens,
		Providers: []app.CalendarProvider{
			app.NewGoogleCalendar(cfg.HTTPTimeout),
			app.NewOutlookCalendar(cfg.HTTPTimeout),
		},
		Meeting: app.NewZoomMeetings(cfg.MeetingAPIBase, cfg.MeetingAccountID,
			cfg.MeetingClientID, cfg.MeetingClientSecret, cfg.HTTPTimeout),
		Mailer: app.NewRelayMailer(cfg.MailRelayURL, cfg.MailAPIKey, cfg.MailFrom, cfg.HTTPTimeout),
		Log:    logger,
	}

	router := gin.Default()

	api := router.Group("/api")

	// Candidate self-service: the scheduling token is the credential.
	schedule := api.Group("/schedule")
	{
		schedule.GET("/:token/slots", appInstance.CandidateSlotsHandler)
		schedule.POST("/:token/book/:slot_id", appInstance.BookSlotHandler)
	}

	// Owner-facing routes behind bearer auth.
	owners := api.Group("/owners", app.AuthMiddleware(cfg.StaticTokens, cfg.JWTSecret))
	{
		owners.POST("/:id/slots", appInstance.GenerateSlotsHandler)
		owners.GET("/:id/slots", appInstance.ListSlotsHandler)
		owners.DELETE("/:id/slots/:slot_id", appInstance.DeleteSlotHandler)
		owners.POST("/:id/meetings", appInstance.ScheduleMeetingHandler)
		owners.POST("/:id/candidates/:candidate_id/invite", appInstance.InviteCandidateHandler)
		owners.POST("/:id/calendar/:provider", appInstance.ConnectCalendarHandler)
		owners.GET("/:id/calendar/:provider", appInstance.CalendarStatusHandler)
		owners.DELETE("/:id/calendar/:provider", appInstance.DisconnectCalendarHandler)
	}

	if err := server.Run(router, cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
