package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/mlb-betting/internal/domain/comps"
	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

const maxRequestBodyBytes = 4 << 20

type Handler struct {
	projectionService *usecase.ProjectionService
	historyService    *usecase.HistoryService
	startYear         int
	endYear           int
	logger            *logging.Logger
	validator         *validator.Validate
}

// HandlerConfig carries the default season range used by history rebuilds.
type HandlerConfig struct {
	StartYear int
	EndYear   int
}

func NewHandler(
	projectionService *usecase.ProjectionService,
	historyService *usecase.HistoryService,
	cfg HandlerConfig,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		projectionService: projectionService,
		historyService:    historyService,
		startYear:         cfg.StartYear,
		endYear:           cfg.EndYear,
		logger:            logger,
		validator:         newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: %w", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a strict JSON body into dst. An empty body is accepted
// only when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	decoder := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type projectionRequest struct {
	Row           map[string]any `json:"row" validate:"required"`
	Role          string         `json:"role" validate:"omitempty,oneof=batter pitcher"`
	RollingWeight *float64       `json:"rolling_weight" validate:"omitempty,gte=0,lte=1"`
}

type batchProjectionRequest struct {
	Rows          []map[string]any `json:"rows" validate:"required,min=1,max=1000,dive,required"`
	Role          string           `json:"role" validate:"omitempty,oneof=batter pitcher"`
	RollingWeight *float64         `json:"rolling_weight" validate:"omitempty,gte=0,lte=1"`
}

type compsRequest struct {
	Row  map[string]any `json:"row" validate:"required"`
	Role string         `json:"role" validate:"omitempty,oneof=batter pitcher"`
	K    int            `json:"k" validate:"gte=0,lte=500"`
}

type rebuildHistoryRequest struct {
	StartYear int `json:"start_year" validate:"omitempty,gte=1871,lte=2100"`
	EndYear   int `json:"end_year" validate:"omitempty,gte=1871,lte=2100"`
}

// rowToRecord converts a decoded query row. role, when set, overrides any
// is_batter flag in the row; a row with neither is a batter.
func rowToRecord(row map[string]any, role string) (season.Record, error) {
	var override season.Role
	if role = strings.TrimSpace(role); role != "" {
		parsed, err := season.ParseRole(role)
		if err != nil {
			return season.Record{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
		}
		override = parsed
	}
	rec, err := season.QueryRecordFromMap(row, override)
	if err != nil {
		return season.Record{}, fmt.Errorf("%w: row: %v", usecase.ErrInvalidInput, err)
	}
	return rec, nil
}

type neighborDTO struct {
	PlayerName string  `json:"player_name"`
	PlayerID   string  `json:"player_id,omitempty"`
	Season     int     `json:"season"`
	IsBatter   bool    `json:"is_batter"`
	Distance   float64 `json:"distance"`
	Weight     float64 `json:"weight"`
}

type compsDTO struct {
	Neighbors     []neighborDTO      `json:"neighbors"`
	WeightedMean  map[string]float64 `json:"weighted_mean"`
	WeightedDelta map[string]float64 `json:"weighted_delta"`
	TotalWeight   float64            `json:"total_weight"`
}

type adjustmentDTO struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

type projectionDTO struct {
	PlayerName    string          `json:"player_name"`
	Role          string          `json:"role"`
	Stat          string          `json:"stat"`
	Base          float64         `json:"base"`
	Rolling       float64         `json:"rolling"`
	Delta         float64         `json:"delta"`
	Blended       float64         `json:"blended"`
	Final         float64         `json:"final"`
	RollingWeight float64         `json:"rolling_weight"`
	Adjustments   []adjustmentDTO `json:"adjustments"`
	Comps         []neighborDTO   `json:"comps"`
}

type batchItemDTO struct {
	Index      int            `json:"index"`
	Projection *projectionDTO `json:"projection,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type rebuildHistoryDTO struct {
	RunID      string `json:"run_id"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	Batters    int    `json:"batters"`
	Pitchers   int    `json:"pitchers"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Evicted    int    `json:"evicted_indexes"`
}

func neighborsToDTO(neighbors []comps.Neighbor) []neighborDTO {
	out := make([]neighborDTO, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, neighborDTO{
			PlayerName: n.Record.PlayerName,
			PlayerID:   n.Record.PlayerID,
			Season:     n.Record.Season,
			IsBatter:   n.Record.IsBatter,
			Distance:   n.Distance,
			Weight:     n.Weight,
		})
	}
	return out
}

func compsToDTO(c comps.Comps) compsDTO {
	return compsDTO{
		Neighbors:     neighborsToDTO(c.Neighbors),
		WeightedMean:  c.WeightedMean,
		WeightedDelta: c.WeightedDelta,
		TotalWeight:   c.TotalWeight,
	}
}

func projectionToDTO(p comps.Projection) projectionDTO {
	adjustments := make([]adjustmentDTO, 0, len(p.Adjustments))
	for _, adj := range p.Adjustments {
		adjustments = append(adjustments, adjustmentDTO{Name: adj.Name, Factor: adj.Factor})
	}
	return projectionDTO{
		PlayerName:    p.PlayerName,
		Role:          string(p.Role),
		Stat:          p.Stat,
		Base:          p.Base,
		Rolling:       p.Rolling,
		Delta:         p.Delta,
		Blended:       p.Blended,
		Final:         p.Final,
		RollingWeight: p.RollingWeight,
		Adjustments:   adjustments,
		Comps:         neighborsToDTO(p.Comps.Neighbors),
	}
}

func batchToDTO(items []usecase.BatchItem) []batchItemDTO {
	out := make([]batchItemDTO, 0, len(items))
	for _, item := range items {
		dto := batchItemDTO{Index: item.Index}
		if item.Err != nil {
			dto.Error = item.Err.Error()
		} else {
			p := projectionToDTO(item.Projection)
			dto.Projection = &p
		}
		out = append(out, dto)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
