package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Stay03/blurranker/pkg/tally"
)

// Run boots the HTTP facade and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config, service *tally.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	router := NewRouter(cfg, service, logger)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http facade listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires the gin engine with middleware and every route.
func NewRouter(cfg Config, service *tally.Service, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}

	api := router.Group("/api")
	api.Use(authMiddleware([]byte(cfg.TokenSigningKey), cfg.TokenIssuer))

	api.POST("/sessions", handler.handleCreateSession)
	api.POST("/sessions/:session_id/archive", handler.handleArchiveSession)
	api.POST("/sessions/:session_id/join", handler.handleJoinSession)
	api.POST("/sessions/:session_id/games", handler.handleCreateGame)
	api.POST("/sessions/:session_id/debts", handler.handleRecordManualDebt)
	api.GET("/sessions/:session_id/standings", handler.handleStandings)
	api.GET("/sessions/:session_id/settle-up", handler.handleSettleUpPlan)

	api.POST("/games/:game_id/rankings", handler.handleSubmitRankings)
	api.POST("/games/:game_id/confirm", handler.handleConfirmGame)
	api.POST("/games/:game_id/unconfirm", handler.handleUnconfirmGame)
	api.GET("/games/:game_id/confirmations", handler.handleConfirmations)
	api.DELETE("/games/:game_id", handler.handleDeleteGame)

	api.POST("/debts/:debt_id/pay", handler.handleMarkDebtPaid)
	api.GET("/me/settle-up", handler.handlePlayerSettleUpPlan)
	api.GET("/leaderboard", handler.handleLeaderboard)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *tally.Service
	cfg     Config
}

func (handler *httpHandler) handleCreateSession(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return
	}
	var request createSessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	stakeCents, err := tally.NewAmountCents(request.StakeCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	settings, err := tally.NewMetadataJSON(request.Settings)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	session, err := handler.service.CreateSession(requestCtx, request.Name, stakeCents, actor, settings)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"session": sessionPayloadFrom(session)})
}

func (handler *httpHandler) handleArchiveSession(ctx *gin.Context) {
	actor, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.ArchiveSession(requestCtx, sessionID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "archived"})
}

func (handler *httpHandler) handleJoinSession(ctx *gin.Context) {
	actor, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.JoinSession(requestCtx, sessionID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (handler *httpHandler) handleCreateGame(ctx *gin.Context) {
	actor, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	game, err := handler.service.CreateGame(requestCtx, sessionID, actor)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"game": gamePayloadFrom(game)})
}

func (handler *httpHandler) handleRecordManualDebt(ctx *gin.Context) {
	actor, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	var request manualDebtRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	payer, err := tally.NewPlayerID(request.PayerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payee, err := tally.NewPlayerID(request.PayeeID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	amountCents, err := tally.NewAmountCents(request.AmountCents)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.RecordManualDebt(requestCtx, sessionID, actor, payer, payee, amountCents); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

func (handler *httpHandler) handleStandings(ctx *gin.Context) {
	_, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	standings, err := handler.service.SessionStandings(requestCtx, sessionID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	rows := make([]standingPayload, 0, len(standings))
	for _, standing := range standings {
		rows = append(rows, standingPayloadFrom(standing))
	}
	ctx.JSON(http.StatusOK, gin.H{"standings": rows})
}

func (handler *httpHandler) handleSettleUpPlan(ctx *gin.Context) {
	_, sessionID, ok := handler.actorAndSession(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	transfers, err := handler.service.SettleUpPlan(requestCtx, sessionID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transfers": transferPayloadsFrom(transfers)})
}

func (handler *httpHandler) handleSubmitRankings(ctx *gin.Context) {
	actor, gameID, ok := handler.actorAndGame(ctx)
	if !ok {
		return
	}
	var request submitRankingsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	entries := make([]tally.RankEntry, 0, len(request.Rankings))
	for _, entry := range request.Rankings {
		player, err := tally.NewPlayerID(entry.PlayerID)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		entries = append(entries, tally.RankEntry{Player: player, Position: entry.Position})
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.SubmitRankings(requestCtx, gameID, entries, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (handler *httpHandler) handleConfirmGame(ctx *gin.Context) {
	actor, gameID, ok := handler.actorAndGame(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.ConfirmGame(requestCtx, gameID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (handler *httpHandler) handleUnconfirmGame(ctx *gin.Context) {
	actor, gameID, ok := handler.actorAndGame(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.UnconfirmGame(requestCtx, gameID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "unconfirmed"})
}

func (handler *httpHandler) handleConfirmations(ctx *gin.Context) {
	_, gameID, ok := handler.actorAndGame(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	confirmations, err := handler.service.GameConfirmations(requestCtx, gameID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	players := make([]string, 0, len(confirmations))
	for _, confirmation := range confirmations {
		players = append(players, confirmation.PlayerID.String())
	}
	ctx.JSON(http.StatusOK, gin.H{"confirmed_by": players})
}

func (handler *httpHandler) handleDeleteGame(ctx *gin.Context) {
	actor, gameID, ok := handler.actorAndGame(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.DeleteGame(requestCtx, gameID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (handler *httpHandler) handleMarkDebtPaid(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return
	}
	debtID, err := tally.NewDebtID(ctx.Param("debt_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.service.MarkDebtPaid(requestCtx, debtID, actor); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (handler *httpHandler) handlePlayerSettleUpPlan(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	transfers, err := handler.service.PlayerSettleUpPlan(requestCtx, actor)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transfers": transferPayloadsFrom(transfers)})
}

func (handler *httpHandler) handleLeaderboard(ctx *gin.Context) {
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	rows, err := handler.service.Leaderboard(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]leaderboardPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, leaderboardPayload{
			Rank:           row.Rank,
			SessionsJoined: row.SessionsJoined,
			Stats:          statsPayloadFrom(row.Stats),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"leaderboard": payloads})
}

func (handler *httpHandler) actorAndSession(ctx *gin.Context) (tally.PlayerID, tally.SessionID, bool) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return tally.PlayerID{}, tally.SessionID{}, false
	}
	sessionID, err := tally.NewSessionID(ctx.Param("session_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return tally.PlayerID{}, tally.SessionID{}, false
	}
	return actor, sessionID, true
}

func (handler *httpHandler) actorAndGame(ctx *gin.Context) (tally.PlayerID, tally.GameID, bool) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing actor"))
		return tally.PlayerID{}, tally.GameID{}, false
	}
	gameID, err := tally.NewGameID(ctx.Param("game_id"))
	if err != nil {
		handler.respondError(ctx, err)
		return tally.PlayerID{}, tally.GameID{}, false
	}
	return actor, gameID, true
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, tally.ErrAuthorization):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, tally.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, tally.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, tally.ErrState):
		return http.StatusConflict, "state_conflict"
	case errors.Is(err, tally.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, tally.ErrPersistence):
		return http.StatusBadGateway, "storage_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
