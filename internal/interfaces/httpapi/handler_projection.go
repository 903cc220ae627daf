package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Predict")
	defer span.End()

	var req projectionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	rec, err := rowToRecord(req.Row, req.Role)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	projection, err := h.projectionService.Predict(ctx, rec, req.RollingWeight)
	if err != nil {
		h.logger.WarnContext(ctx, "predict failed", "player_name", rec.DisplayName(), "role", string(rec.Role()), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, projectionToDTO(projection))
}

func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PredictBatch")
	defer span.End()

	var req batchProjectionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	records := make([]season.Record, 0, len(req.Rows))
	for i, row := range req.Rows {
		rec, err := rowToRecord(row, req.Role)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("rows[%d]: %w", i, err))
			return
		}
		records = append(records, rec)
	}

	items, err := h.projectionService.PredictBatch(ctx, records, req.RollingWeight)
	if err != nil {
		h.logger.WarnContext(ctx, "predict batch failed", "rows", len(records), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, batchToDTO(items))
}

func (h *Handler) Comps(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Comps")
	defer span.End()

	var req compsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	rec, err := rowToRecord(req.Row, req.Role)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.projectionService.GetComps(ctx, rec, req.K)
	if err != nil {
		h.logger.WarnContext(ctx, "get comps failed", "player_name", rec.DisplayName(), "k", req.K, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, compsToDTO(result))
}

// RebuildHistory refetches the historical dataset and evicts fitted indexes.
func (h *Handler) RebuildHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RebuildHistory")
	defer span.End()

	var req rebuildHistoryRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.StartYear == 0 {
		req.StartYear = h.startYear
	}
	if req.EndYear == 0 {
		req.EndYear = h.endYear
	}
	if h.historyService == nil {
		writeError(ctx, w, fmt.Errorf("%w: history service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.historyService.Build(ctx, req.StartYear, req.EndYear)
	if err != nil {
		h.logger.ErrorContext(ctx, "rebuild history failed", "start_year", req.StartYear, "end_year", req.EndYear, "error", err)
		writeError(ctx, w, err)
		return
	}
	evicted := h.projectionService.Invalidate(ctx)

	writeSuccess(ctx, w, http.StatusOK, rebuildHistoryDTO{
		RunID:      result.RunID,
		StartYear:  req.StartYear,
		EndYear:    req.EndYear,
		Batters:    result.Batters,
		Pitchers:   result.Pitchers,
		Skipped:    result.Skipped,
		DurationMS: result.Duration.Milliseconds(),
		Evicted:    evicted,
	})
}
