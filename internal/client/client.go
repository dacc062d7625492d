package client

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

	"github.com/meld/coaching-dashboard/internal/domain"
	"github.com/meld/coaching-dashboard/internal/metrics"
	"github.com/meld/coaching-dashboard/pkg/logger"
)

// CoachingClient is a client for the coaching REST API.
// It owns no state: every method issues exactly one request.
type CoachingClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewCoachingClient creates a new coaching API client.
// A zero timeout keeps the http.Client default of no timeout.
func NewCoachingClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *CoachingClient {
	return &CoachingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

// ListMembers gets all team members
func (c *CoachingClient) ListMembers(ctx context.Context) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	if err := c.do(ctx, http.MethodGet, "/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// CreateMember creates a new team member
func (c *CoachingClient) CreateMember(ctx context.Context, in domain.NewMember) (*domain.TeamMember, error) {
	var member domain.TeamMember
	if err := c.do(ctx, http.MethodPost, "/members", in, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMember updates a team member
func (c *CoachingClient) UpdateMember(ctx context.Context, id domain.ID, in domain.MemberUpdate) (*domain.TeamMember, error) {
	var member domain.TeamMember
	if err := c.do(ctx, http.MethodPut, "/members/"+idPath(id), in, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// DeleteMember deletes a team member
func (c *CoachingClient) DeleteMember(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodDelete, "/members/"+idPath(id), nil, nil)
}

// ListTeams gets all teams
func (c *CoachingClient) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// CreateTeam creates a new team
func (c *CoachingClient) CreateTeam(ctx context.Context, in domain.NewTeam) (*domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodPost, "/teams", in, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// UpdateTeam updates a team
func (c *CoachingClient) UpdateTeam(ctx context.Context, id domain.ID, in domain.TeamUpdate) (*domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodPut, "/teams/"+idPath(id), in, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// DeleteTeam deletes a team
func (c *CoachingClient) DeleteTeam(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodDelete, "/teams/"+idPath(id), nil, nil)
}

// AssignMember puts a member into a team, replacing any previous assignment
func (c *CoachingClient) AssignMember(ctx context.Context, memberID, teamID domain.ID) error {
	body := domain.AssignRequest{MemberID: memberID, TeamID: teamID}
	return c.do(ctx, http.MethodPost, "/assignments", body, nil)
}

// UnassignMember clears a member's team
func (c *CoachingClient) UnassignMember(ctx context.Context, memberID domain.ID) error {
	return c.do(ctx, http.MethodDelete, "/assignments/member/"+idPath(memberID), nil, nil)
}

// ListFeedback gets feedback, optionally filtered by target
func (c *CoachingClient) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	params := url.Values{}
	if filter.TargetType != "" {
		params.Set("target_type", string(filter.TargetType))
	}
	if filter.TargetID != 0 {
		params.Set("target_id", idPath(filter.TargetID))
	}
	endpoint := "/feedback"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var feedback []domain.Feedback
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// CreateFeedback creates a feedback entry
func (c *CoachingClient) CreateFeedback(ctx context.Context, in domain.NewFeedback) (*domain.Feedback, error) {
	var feedback domain.Feedback
	if err := c.do(ctx, http.MethodPost, "/feedback", in, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// UpdateFeedback edits a feedback entry
func (c *CoachingClient) UpdateFeedback(ctx context.Context, id domain.ID, in domain.FeedbackUpdate) (*domain.Feedback, error) {
	var feedback domain.Feedback
	if err := c.do(ctx, http.MethodPut, "/feedback/"+idPath(id), in, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// DeleteFeedback deletes a feedback entry
func (c *CoachingClient) DeleteFeedback(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodDelete, "/feedback/"+idPath(id), nil, nil)
}

// do sends one JSON request and decodes the response into out when out is non-nil.
// Any non-2xx status becomes a *domain.APIError; the response body is not parsed.
func (c *CoachingClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, "error")
		return fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(method, strconv.Itoa(resp.StatusCode/100)+"xx")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &domain.APIError{
			StatusCode: resp.StatusCode,
			Status:     reasonPhrase(resp),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *CoachingClient) observe(method, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequests.WithLabelValues(method, status).Inc()
}

// reasonPhrase returns the status text the server sent, falling back to the
// standard text when the status line carries none.
func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

func idPath(id domain.ID) string {
	return strconv.FormatInt(int64(id), 10)
}
