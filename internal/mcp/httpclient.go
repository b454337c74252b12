package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/mesoplan/internal/models"
	"github.com/claude/mesoplan/internal/planning"
	"github.com/claude/mesoplan/internal/storage"
	"github.com/claude/mesoplan/internal/volume"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the Mesoplan REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the planner lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	return c.do(req, path)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path)
}

func (c *HTTPClient) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return body, nil
	case http.StatusConflict:
		return nil, fmt.Errorf("httpclient: %s: %w", path, volume.ErrMesocycleComplete)
	case http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	}
	return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
}

func decode[T any](body []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return v, nil
}

func (c *HTTPClient) Plan(ctx context.Context, req planning.PlanRequest) (*volume.WeekPlan, error) {
	body, err := c.post(ctx, "/api/v1/plan", req)
	if err != nil {
		return nil, err
	}
	plan, err := decode[volume.WeekPlan](body, "plan")
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *HTTPClient) Resolve(ctx context.Context, target volume.WeeklyVolumeTarget, cons volume.VolumeConstraints) (volume.Resolution, error) {
	payload := map[string]any{"target": target, "constraints": cons}
	body, err := c.post(ctx, "/api/v1/resolve", payload)
	if err != nil {
		return volume.Resolution{}, err
	}
	return decode[volume.Resolution](body, "resolution")
}

func (c *HTTPClient) Exercises(ctx context.Context, mg volume.MuscleGroup) ([]volume.ExercisePriority, error) {
	params := url.Values{}
	if mg.Valid() {
		params.Set("muscle_group", mg.String())
	}
	body, err := c.get(ctx, "/api/v1/exercises", params)
	if err != nil {
		return nil, err
	}
	return decode[[]volume.ExercisePriority](body, "exercises")
}

func (c *HTTPClient) Mesocycles(ctx context.Context, _ int) ([]models.Mesocycle, error) {
	body, err := c.get(ctx, "/api/v1/mesocycles", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]models.Mesocycle](body, "mesocycles")
}

func (c *HTTPClient) Week(ctx context.Context, _ int, id uuid.UUID, week int) (*planning.MesocycleWeek, error) {
	body, err := c.get(ctx, "/api/v1/mesocycles/"+id.String()+"/weeks/"+strconv.Itoa(week), nil)
	if err != nil {
		return nil, err
	}
	mw, err := decode[planning.MesocycleWeek](body, "week")
	if err != nil {
		return nil, err
	}
	return &mw, nil
}

func (c *HTTPClient) Advance(ctx context.Context, _ int, id uuid.UUID, req planning.AdvanceRequest) (*planning.MesocycleWeek, error) {
	body, err := c.post(ctx, "/api/v1/mesocycles/"+id.String()+"/advance", req)
	if err != nil {
		return nil, err
	}
	mw, err := decode[planning.MesocycleWeek](body, "week")
	if err != nil {
		return nil, err
	}
	return &mw, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) Sets(ctx context.Context, _ int, start, end time.Time) ([]models.WorkoutSetRow, error) {
	body, err := c.get(ctx, "/api/v1/sets", timeParams(start, end))
	if err != nil {
		return nil, err
	}
	return decode[[]models.WorkoutSetRow](body, "workout sets")
}

func (c *HTTPClient) PlanLogs(ctx context.Context, _ int, limit int) ([]storage.PlanLog, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	body, err := c.get(ctx, "/api/v1/plan-logs", params)
	if err != nil {
		return nil, err
	}
	return decode[[]storage.PlanLog](body, "plan logs")
}
