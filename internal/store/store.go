package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meld/coaching-dashboard/internal/domain"
	"github.com/meld/coaching-dashboard/internal/metrics"
	"github.com/meld/coaching-dashboard/internal/notify"
	"github.com/meld/coaching-dashboard/pkg/logger"
)

// User-facing messages
const (
	MsgLoadFailed      = "Failed to load data"
	MsgMemberAdded     = "Team member added successfully!"
	MsgMemberDeleted   = "Team member deleted successfully!"
	MsgTeamAdded       = "Team created successfully!"
	MsgTeamDeleted     = "Team deleted successfully!"
	MsgMemberAssigned  = "Member assigned to team successfully!"
	MsgMemberRemoved   = "Member removed from team successfully!"
	MsgFeedbackAdded   = "Feedback submitted successfully!"
	MsgFeedbackDeleted = "Feedback deleted successfully!"
	MsgMemberUpdated   = "Team member updated successfully!"
	MsgTeamUpdated     = "Team updated successfully!"
	MsgFeedbackUpdated = "Feedback updated successfully!"
	MsgTeamHasMembers  = "Cannot delete team with members. Remove all members first."
)

// API is the subset of the coaching REST client the store depends on
type API interface {
	ListMembers(ctx context.Context) ([]domain.TeamMember, error)
	CreateMember(ctx context.Context, in domain.NewMember) (*domain.TeamMember, error)
	UpdateMember(ctx context.Context, id domain.ID, in domain.MemberUpdate) (*domain.TeamMember, error)
	DeleteMember(ctx context.Context, id domain.ID) error
	ListTeams(ctx context.Context) ([]domain.Team, error)
	CreateTeam(ctx context.Context, in domain.NewTeam) (*domain.Team, error)
	UpdateTeam(ctx context.Context, id domain.ID, in domain.TeamUpdate) (*domain.Team, error)
	DeleteTeam(ctx context.Context, id domain.ID) error
	AssignMember(ctx context.Context, memberID, teamID domain.ID) error
	UnassignMember(ctx context.Context, memberID domain.ID) error
	ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error)
	CreateFeedback(ctx context.Context, in domain.NewFeedback) (*domain.Feedback, error)
	UpdateFeedback(ctx context.Context, id domain.ID, in domain.FeedbackUpdate) (*domain.Feedback, error)
	DeleteFeedback(ctx context.Context, id domain.ID) error
}

// Notifier receives user-facing status messages
type Notifier interface {
	Notify(message string, kind notify.Kind, d time.Duration) notify.Notification
}

// Snapshot is a consistent copy of the three collections
type Snapshot struct {
	Members  []domain.TeamMember `json:"members"`
	Teams    []domain.Team       `json:"teams"`
	Feedback []domain.Feedback   `json:"feedback"`
	Loading  bool                `json:"loading"`
}

// TeamView is a team with the members derived from their team references
type TeamView struct {
	domain.Team
	Members []domain.TeamMember `json:"members"`
}

// Dashboard is the full read model built from one snapshot
type Dashboard struct {
	Loading    bool                `json:"loading"`
	Members    []domain.TeamMember `json:"members"`
	Teams      []TeamView          `json:"teams"`
	Unassigned []domain.TeamMember `json:"unassigned"`
	Feedback   []domain.Feedback   `json:"feedback"`
}

// Store owns the in-memory copies of members, teams and feedback.
// Every write goes to the API first and is followed by a full reload;
// nothing is ever patched locally.
type Store struct {
	api      API
	notifier Notifier
	log      logger.Logger
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	members   []domain.TeamMember
	teams     []domain.Team
	feedback  []domain.Feedback
	committed uint64

	seq       atomic.Uint64
	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an empty store. Call Refresh once before relying on its contents.
func New(api API, notifier Notifier, log logger.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Store{
		api:      api,
		notifier: notifier,
		log:      log,
		metrics:  m,
		members:  []domain.TeamMember{},
		teams:    []domain.Team{},
		feedback: []domain.Feedback{},
		ready:    make(chan struct{}),
	}
}

// Refresh reloads all three collections concurrently and replaces them only
// if every request succeeds. A refresh that finishes after a newer one has
// already been committed is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	ticket := s.seq.Add(1)
	defer s.markReady()

	var (
		members  []domain.TeamMember
		teams    []domain.Team
		feedback []domain.Feedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.api.ListMembers(gctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		teams, err = s.api.ListTeams(gctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		feedback, err = s.api.ListFeedback(gctx, domain.FeedbackFilter{})
		if err != nil {
			return fmt.Errorf("list feedback: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Error(ctx, "failed to load data", zap.Error(err))
		s.notifier.Notify(MsgLoadFailed, notify.KindError, 0)
		s.metrics.Refreshes.WithLabelValues(metrics.ResultFailure).Inc()
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.Lock()
	if committed := s.committed; ticket < committed {
		s.mu.Unlock()
		s.log.Debug(ctx, "discarding stale refresh",
			zap.Uint64("ticket", ticket),
			zap.Uint64("committed", committed))
		s.metrics.Refreshes.WithLabelValues(metrics.ResultStale).Inc()
		return nil
	}
	s.members = nonNil(members)
	s.teams = nonNil(teams)
	s.feedback = nonNil(feedback)
	s.committed = ticket
	s.mu.Unlock()

	s.log.Debug(ctx, "data loaded",
		zap.Int("members", len(members)),
		zap.Int("teams", len(teams)),
		zap.Int("feedback", len(feedback)))
	s.metrics.Refreshes.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}

// AddMember creates a member on the server and reloads.
// Required fields are the caller's responsibility; the request is sent as given.
func (s *Store) AddMember(ctx context.Context, in domain.NewMember) (*domain.TeamMember, error) {
	var created *domain.TeamMember
	err := s.mutate(ctx, "add_member", MsgMemberAdded, "Failed to add team member", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateMember(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateMember changes a member's profile on the server and reloads
func (s *Store) UpdateMember(ctx context.Context, memberID domain.ID, in domain.MemberUpdate) (*domain.TeamMember, error) {
	var updated *domain.TeamMember
	err := s.mutate(ctx, "update_member", MsgMemberUpdated, "Failed to update team member", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateMember(ctx, memberID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMember deletes a member on the server and reloads
func (s *Store) DeleteMember(ctx context.Context, memberID domain.ID) error {
	return s.mutate(ctx, "delete_member", MsgMemberDeleted, "Failed to delete team member", func(ctx context.Context) error {
		return s.api.DeleteMember(ctx, memberID)
	})
}

// AddTeam creates a team on the server and reloads
func (s *Store) AddTeam(ctx context.Context, in domain.NewTeam) (*domain.Team, error) {
	var created *domain.Team
	err := s.mutate(ctx, "add_team", MsgTeamAdded, "Failed to create team", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateTeam(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTeam renames a team or changes its logo and reloads
func (s *Store) UpdateTeam(ctx context.Context, teamID domain.ID, in domain.TeamUpdate) (*domain.Team, error) {
	var updated *domain.Team
	err := s.mutate(ctx, "update_team", MsgTeamUpdated, "Failed to update team", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateTeam(ctx, teamID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignMemberToTeam moves a member into a team. The server drops any previous assignment.
func (s *Store) AssignMemberToTeam(ctx context.Context, memberID, teamID domain.ID) error {
	return s.mutate(ctx, "assign_member", MsgMemberAssigned, "Failed to assign member to team", func(ctx context.Context) error {
		return s.api.AssignMember(ctx, memberID, teamID)
	})
}

// RemoveMemberFromTeam clears a member's team. Whether an unassigned member is an
// error is up to the server.
func (s *Store) RemoveMemberFromTeam(ctx context.Context, memberID domain.ID) error {
	return s.mutate(ctx, "remove_member", MsgMemberRemoved, "Failed to remove member from team", func(ctx context.Context) error {
		return s.api.UnassignMember(ctx, memberID)
	})
}

// AddFeedback submits feedback for a member or a team
func (s *Store) AddFeedback(ctx context.Context, in domain.NewFeedback) (*domain.Feedback, error) {
	var created *domain.Feedback
	err := s.mutate(ctx, "add_feedback", MsgFeedbackAdded, "Failed to submit feedback", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateFeedback(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateFeedback edits a feedback entry's content and reloads
func (s *Store) UpdateFeedback(ctx context.Context, feedbackID domain.ID, in domain.FeedbackUpdate) (*domain.Feedback, error) {
	var updated *domain.Feedback
	err := s.mutate(ctx, "update_feedback", MsgFeedbackUpdated, "Failed to update feedback", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateFeedback(ctx, feedbackID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteFeedback deletes a feedback entry on the server and reloads
func (s *Store) DeleteFeedback(ctx context.Context, feedbackID domain.ID) error {
	return s.mutate(ctx, "delete_feedback", MsgFeedbackDeleted, "Failed to delete feedback", func(ctx context.Context) error {
		return s.api.DeleteFeedback(ctx, feedbackID)
	})
}

// DeleteTeam deletes a team. It refuses, without calling the API, while the
// current snapshot still has members assigned to the team.
func (s *Store) DeleteTeam(ctx context.Context, teamID domain.ID) error {
	if members := s.TeamMembers(teamID); len(members) > 0 {
		s.log.Warn(ctx, "refusing to delete team with members",
			zap.Int64("team_id", int64(teamID)),
			zap.Int("members", len(members)))
		s.notifier.Notify(MsgTeamHasMembers, notify.KindError, 0)
		s.metrics.Mutations.WithLabelValues("delete_team", metrics.ResultRejected).Inc()
		return fmt.Errorf("delete team %d: %w", teamID, domain.ErrTeamHasMembers)
	}
	return s.mutate(ctx, "delete_team", MsgTeamDeleted, "Failed to delete team", func(ctx context.Context) error {
		return s.api.DeleteTeam(ctx, teamID)
	})
}

// mutate runs the write-then-reload protocol shared by every mutation.
// A failed reload after a successful write is reported by Refresh itself and
// does not turn the write into a failure.
func (s *Store) mutate(ctx context.Context, op, success, failure string, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		s.log.Error(ctx, "mutation failed", zap.String("operation", op), zap.Error(err))
		s.notifier.Notify(fmt.Sprintf("%s: %v", failure, err), notify.KindError, 0)
		s.metrics.Mutations.WithLabelValues(op, metrics.ResultFailure).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "reload after mutation failed", zap.String("operation", op), zap.Error(err))
	}
	s.notifier.Notify(success, notify.KindSuccess, 0)
	s.metrics.Mutations.WithLabelValues(op, metrics.ResultSuccess).Inc()
	s.log.Info(ctx, "mutation applied", zap.String("operation", op))
	return nil
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Loading is true until the first Refresh settles, whatever its outcome.
// Later refreshes do not set it again.
func (s *Store) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// Ready is closed once the first Refresh settles
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Snapshot returns deep copies of all three collections taken under one lock
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Members:  cloneMembers(s.members),
		Teams:    cloneTeams(s.teams),
		Feedback: clone(s.feedback),
		Loading:  s.Loading(),
	}
}

// Dashboard derives team membership and the unassigned list from the same
// snapshot it returns, so the parts never mix two refreshes.
func (s *Store) Dashboard() Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]TeamView, 0, len(s.teams))
	for _, t := range s.teams {
		teams = append(teams, TeamView{Team: t.Clone(), Members: s.teamMembersLocked(t.ID)})
	}
	return Dashboard{
		Loading:    s.Loading(),
		Members:    cloneMembers(s.members),
		Teams:      teams,
		Unassigned: s.unassignedLocked(),
		Feedback:   clone(s.feedback),
	}
}

func (s *Store) Members() []domain.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMembers(s.members)
}

func (s *Store) Teams() []domain.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTeams(s.teams)
}

func (s *Store) Feedback() []domain.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.feedback)
}

// TeamMembers derives a team's members from the members' team references
func (s *Store) TeamMembers(teamID domain.ID) []domain.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamMembersLocked(teamID)
}

// UnassignedMembers returns members without a team
func (s *Store) UnassignedMembers() []domain.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unassignedLocked()
}

func (s *Store) teamMembersLocked(teamID domain.ID) []domain.TeamMember {
	out := []domain.TeamMember{}
	for _, m := range s.members {
		if m.InTeam(teamID) {
			out = append(out, m.Clone())
		}
	}
	return out
}

func (s *Store) unassignedLocked() []domain.TeamMember {
	out := []domain.TeamMember{}
	for _, m := range s.members {
		if m.TeamID == nil {
			out = append(out, m.Clone())
		}
	}
	return out
}

// FeedbackFor returns the feedback about one member or team
func (s *Store) FeedbackFor(kind domain.TargetType, id domain.ID) []domain.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Feedback{}
	for _, f := range s.feedback {
		if f.TargetType == kind && f.TargetID == id {
			out = append(out, f)
		}
	}
	return out
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// clone is for element types without pointers or slices
func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneMembers(in []domain.TeamMember) []domain.TeamMember {
	out := make([]domain.TeamMember, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func cloneTeams(in []domain.Team) []domain.Team {
	out := make([]domain.Team, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
