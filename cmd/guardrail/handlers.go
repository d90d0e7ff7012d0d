package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/porchlight-social/guardrail/appeals"
	"github.com/porchlight-social/guardrail/engine"
	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/throttle"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func auditQueryFromContext(c echo.Context) (engine.AuditQuery, error) {
	q := engine.AuditQuery{
		ContentKind: c.QueryParam("kind"),
		Layer:       c.QueryParam("layer"),
		Action:      c.QueryParam("action"),
		Category:    c.QueryParam("category"),
	}
	if raw := c.QueryParam("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid id: %w", err)
		}
		q.ContentID = id
	}
	if raw := c.QueryParam("actor"); raw != "" {
		actor, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("invalid actor: %w", err)
		}
		q.ActorID = &actor
	}
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, fmt.Errorf("invalid since: %w", err)
		}
		q.Since = t
	}
	if raw := c.QueryParam("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, fmt.Errorf("invalid until: %w", err)
		}
		q.Until = t
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("invalid limit: %w", err)
		}
		q.Limit = n
	}
	return q, nil
}

type precheckRequest struct {
	Text     string         `json:"text"`
	ActorID  *uint64        `json:"actorId"`
	Context  string         `json:"context"`
	Metadata map[string]any `json:"metadata"`
}

// handleModerationPrecheck runs throttling and the L1 precheck for a
// host service about to store a submission. The response carries the
// full decision (the caller needs it for RecordClassification); error
// responses stay generic so nothing about matched rules can reach the
// submitting user.
func (srv *Server) handleModerationPrecheck(c echo.Context) error {
	var req precheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	if err := srv.guard.Enforce(ctx, req.ActorID, req.Context, req.Text); err != nil {
		if errors.Is(err, throttle.ErrRateLimited) || errors.Is(err, throttle.ErrDuplicateContent) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many submissions, try again later")
		}
		return err
	}

	dec, err := srv.engine.Precheck(ctx, req.Text, req.ActorID, req.Context, req.Metadata)
	if errors.Is(err, engine.ErrContentProhibited) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "submission rejected: content violates community guidelines")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"blocked":    false,
		"labels":     dec.Labels,
		"reasonCode": dec.ReasonCode,
		"ruleRef":    dec.RuleRef,
	})
}

func (srv *Server) handleGetUserFilter(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	prof, err := srv.filters.ActiveProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if prof == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no active filter profile")
	}
	return c.JSON(http.StatusOK, prof)
}

func (srv *Server) handleListRules(c echo.Context) error {
	type ruleView struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Layer string `json:"layer"`
	}
	var out []ruleView
	for _, layer := range []string{models.LayerOne, models.LayerTwo} {
		for _, r := range srv.catalog.Rules(layer) {
			// patterns are deliberately not exposed
			out = append(out, ruleView{Key: r.Key, Label: r.Label, Layer: r.Layer})
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) handleListActions(c echo.Context) error {
	q, err := auditQueryFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actions, err := srv.engine.ListActions(c.Request().Context(), q)
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "csv" {
		return writeCSV(c, "moderation_actions.csv",
			[]string{"id", "content_kind", "content_id", "layer", "action", "reason_code", "rule_ref", "actor_id", "created_at"},
			len(actions), func(i int) []string {
				a := actions[i]
				return []string{
					strconv.FormatUint(a.ID, 10),
					strDeref(a.ContentKind),
					uintDeref(a.ContentID),
					a.Layer, a.Action, a.ReasonCode, a.RuleRef,
					uintDeref(a.ActorID),
					a.CreatedAt.UTC().Format(time.RFC3339),
				}
			})
	}
	return c.JSON(http.StatusOK, actions)
}

func (srv *Server) handleListClassifications(c echo.Context) error {
	q, err := auditQueryFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cls, err := srv.engine.ListClassifications(c.Request().Context(), q)
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "csv" {
		return writeCSV(c, "content_classifications.csv",
			[]string{"id", "content_kind", "content_id", "model_version", "labels", "actor_id", "created_at"},
			len(cls), func(i int) []string {
				cl := cls[i]
				return []string{
					strconv.FormatUint(cl.ID, 10),
					cl.ContentKind,
					strconv.FormatUint(cl.ContentID, 10),
					cl.ModelVersion,
					fmt.Sprintf("%v", cl.Labels),
					uintDeref(cl.ActorID),
					cl.CreatedAt.UTC().Format(time.RFC3339),
				}
			})
	}
	return c.JSON(http.StatusOK, cls)
}

func (srv *Server) handleListCompliance(c echo.Context) error {
	q, err := auditQueryFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logs, err := srv.engine.ListComplianceLogs(c.Request().Context(), q)
	if err != nil {
		return err
	}
	if c.QueryParam("format") == "csv" {
		return writeCSV(c, "compliance_logs.csv",
			[]string{"id", "layer", "category", "content_kind", "content_id", "content_hash", "created_at"},
			len(logs), func(i int) []string {
				l := logs[i]
				return []string{
					strconv.FormatUint(l.ID, 10),
					l.Layer, l.Category,
					strDeref(l.ContentKind),
					uintDeref(l.ContentID),
					l.ContentHash,
					l.CreatedAt.UTC().Format(time.RFC3339),
				}
			})
	}
	return c.JSON(http.StatusOK, logs)
}

func (srv *Server) handleListAppeals(c echo.Context) error {
	status := models.AppealStatus(c.QueryParam("status"))
	if status == "" {
		status = models.AppealPending
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	out, err := srv.appeals.ListByStatus(c.Request().Context(), status, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type decideRequest struct {
	Outcome   string `json:"outcome"`
	DecidedBy uint64 `json:"decidedBy"`
}

type bulkDecideRequest struct {
	IDs       []uint64 `json:"ids"`
	Outcome   string   `json:"outcome"`
	DecidedBy uint64   `json:"decidedBy"`
}

func (srv *Server) handleDecideAppeal(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appeal id")
	}
	var req decideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err = srv.appeals.Decide(c.Request().Context(), id, models.AppealStatus(req.Outcome), req.DecidedBy)
	if errors.Is(err, appeals.ErrInvalidOutcome) {
		return echo.NewHTTPError(http.StatusBadRequest, "outcome must be approved or rejected")
	}
	if err != nil {
		return err
	}
	appeal, err := srv.appeals.Get(c.Request().Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "appeal not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appeal)
}

func (srv *Server) handleBulkDecideAppeals(c echo.Context) error {
	var req bulkDecideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := srv.appeals.BulkDecide(c.Request().Context(), req.IDs, models.AppealStatus(req.Outcome), req.DecidedBy)
	if errors.Is(err, appeals.ErrInvalidOutcome) {
		return echo.NewHTTPError(http.StatusBadRequest, "outcome must be approved or rejected")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"requested": len(req.IDs), "updated": updated})
}

func writeCSV(c echo.Context, filename string, header []string, n int, row func(i int) []string) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	w := csv.NewWriter(c.Response())
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uintDeref(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}
