package server

import (
	"errors"
	"net/http"

	"fairway/models"
	"fairway/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type joinRequest struct {
	UserID          int64   `json:"user_id"`
	Username        string  `json:"username,omitempty"`
	TemplateID      int64   `json:"template_id"`
	TournamentID    int64   `json:"tournament_id"`
	InstanceID      int64   `json:"instance_id,omitempty"`
	GolferIDs       []int64 `json:"golfer_ids"`
	CaptainGolferID int64   `json:"captain_golfer_id"`
}

type joinResponse struct {
	EntryID    string `json:"entry_id"`
	InstanceID int64  `json:"instance_id"`
	Status     string `json:"status"`
	FeePaid    int64  `json:"fee_paid"`
	Matched    bool   `json:"matched"`
}

type withdrawRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleJoin(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.UserID == 0 || req.TemplateID == 0 || req.TournamentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id, template_id and tournament_id are required"})
	}

	result, err := s.matchmaking.Join(c.Request().Context(), service.JoinRequest{
		UserID:       req.UserID,
		Username:     req.Username,
		TemplateID:   req.TemplateID,
		TournamentID: req.TournamentID,
		InstanceID:   req.InstanceID,
		Lineup: models.Lineup{
			GolferIDs:       req.GolferIDs,
			CaptainGolferID: req.CaptainGolferID,
		},
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, joinResponse{
		EntryID:    result.Entry.ID.String(),
		InstanceID: result.Instance.ID,
		Status:     string(result.Instance.Status),
		FeePaid:    result.Entry.FeePaid,
		Matched:    result.Matched,
	})
}

func (s *Server) handleWithdraw(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	var req withdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	if err := s.matchmaking.Withdraw(c.Request().Context(), req.UserID, entryID); err != nil {
		return s.mapServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// handleSweep triggers a reconciliation run on demand. The endpoint is
// internal and guarded by a shared token so the scheduler sidecar or an
// operator can invoke it, but the public cannot.
func (s *Server) handleSweep(c echo.Context) error {
	if s.sweepToken == "" || c.Request().Header.Get("X-Sweep-Token") != s.sweepToken {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	result, err := s.sweeper.Run(c.Request().Context())
	if err != nil {
		log.WithError(err).Error("On-demand sweep failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"deleted_pending":        result.DeletedPending,
		"cancelled_by_reg_close": result.CancelledByRegClose,
		"refunded_by_reg_close":  result.RefundedByRegClose,
		"cancelled_safety_net":   result.CancelledSafetyNet,
		"refunded_safety_net":    result.RefundedSafetyNet,
	})
}

// handleSweepLatest reports the most recent recorded sweep so operators
// can check reconciliation freshness without triggering a run.
func (s *Server) handleSweepLatest(c echo.Context) error {
	if s.sweepToken == "" || c.Request().Header.Get("X-Sweep-Token") != s.sweepToken {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	run, err := s.sweeper.LastRun(c.Request().Context())
	if err != nil {
		log.WithError(err).Error("Failed to load latest sweep run")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no sweep has run yet"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"started_at":             run.StartedAt,
		"deleted_pending":        run.DeletedPending,
		"cancelled_by_reg_close": run.CancelledByRegClose,
		"refunded_by_reg_close":  run.RefundedByRegClose,
		"cancelled_safety_net":   run.CancelledSafetyNet,
		"refunded_safety_net":    run.RefundedSafetyNet,
	})
}

// mapServiceError translates service sentinels into HTTP responses
func (s *Server) mapServiceError(c echo.Context, err error) error {
	var lineupErr *service.InvalidLineupError
	if errors.As(err, &lineupErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid lineup",
			"reasons": lineupErr.Reasons,
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalidTemplate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, service.ErrInstanceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotEntryOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrCannotAcceptOwnChallenge),
		errors.Is(err, service.ErrInstanceFull),
		errors.Is(err, service.ErrWithdrawNotAllowed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	log.WithError(err).Error("Request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
