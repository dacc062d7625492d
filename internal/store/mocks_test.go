package store

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meld/coaching-dashboard/internal/domain"
	"github.com/meld/coaching-dashboard/internal/notify"
)

type MockAPI struct {
	mock.Mock
}

var _ API = (*MockAPI)(nil)

func (m *MockAPI) ListMembers(ctx context.Context) ([]domain.TeamMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TeamMember), args.Error(1)
}

func (m *MockAPI) CreateMember(ctx context.Context, in domain.NewMember) (*domain.TeamMember, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

func (m *MockAPI) UpdateMember(ctx context.Context, id domain.ID, in domain.MemberUpdate) (*domain.TeamMember, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

func (m *MockAPI) DeleteMember(ctx context.Context, id domain.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) ListTeams(ctx context.Context) ([]domain.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Team), args.Error(1)
}

func (m *MockAPI) CreateTeam(ctx context.Context, in domain.NewTeam) (*domain.Team, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *MockAPI) UpdateTeam(ctx context.Context, id domain.ID, in domain.TeamUpdate) (*domain.Team, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *MockAPI) DeleteTeam(ctx context.Context, id domain.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) AssignMember(ctx context.Context, memberID, teamID domain.ID) error {
	args := m.Called(ctx, memberID, teamID)
	return args.Error(0)
}

func (m *MockAPI) UnassignMember(ctx context.Context, memberID domain.ID) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

func (m *MockAPI) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Feedback), args.Error(1)
}

func (m *MockAPI) CreateFeedback(ctx context.Context, in domain.NewFeedback) (*domain.Feedback, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

func (m *MockAPI) UpdateFeedback(ctx context.Context, id domain.ID, in domain.FeedbackUpdate) (*domain.Feedback, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Feedback), args.Error(1)
}

func (m *MockAPI) DeleteFeedback(ctx context.Context, id domain.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// recordingNotifier keeps every notification it receives
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(message string, kind notify.Kind, d time.Duration) notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := notify.Notification{Message: message, Kind: kind, Duration: d}
	r.sent = append(r.sent, n)
	return n
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

func (r *recordingNotifier) ofKind(kind notify.Kind) []notify.Notification {
	var out []notify.Notification
	for _, n := range r.all() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// fakeBackend is an in-memory coaching API with server-side semantics:
// server-assigned ids, single-team membership and target name resolution.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   domain.ID
	members  []domain.TeamMember
	teams    []domain.Team
	feedback []domain.Feedback
	now      time.Time
}

var _ API = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeBackend) id() domain.ID {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) ListMembers(context.Context) ([]domain.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TeamMember(nil), f.members...), nil
}

func (f *fakeBackend) CreateMember(_ context.Context, in domain.NewMember) (*domain.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := domain.TeamMember{ID: f.id(), Name: in.Name, Email: in.Email, Picture: in.Picture, CreatedAt: f.now, UpdatedAt: f.now}
	f.members = append(f.members, m)
	return &m, nil
}

func (f *fakeBackend) UpdateMember(_ context.Context, id domain.ID, in domain.MemberUpdate) (*domain.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.memberIndex(id)
	if i < 0 {
		return nil, &domain.APIError{StatusCode: 404, Status: "Not Found"}
	}
	if in.Name != "" {
		f.members[i].Name = in.Name
	}
	if in.Email != "" {
		f.members[i].Email = in.Email
	}
	if in.Picture != "" {
		f.members[i].Picture = in.Picture
	}
	m := f.members[i]
	return &m, nil
}

func (f *fakeBackend) DeleteMember(_ context.Context, id domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.members {
		if m.ID == id {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return &domain.APIError{StatusCode: 404, Status: "Not Found"}
}

func (f *fakeBackend) ListTeams(context.Context) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Team(nil), f.teams...), nil
}

func (f *fakeBackend) CreateTeam(_ context.Context, in domain.NewTeam) (*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := domain.Team{ID: f.id(), Name: in.Name, Logo: in.Logo, CreatedAt: f.now, UpdatedAt: f.now}
	f.teams = append(f.teams, t)
	return &t, nil
}

func (f *fakeBackend) UpdateTeam(_ context.Context, id domain.ID, in domain.TeamUpdate) (*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.teamIndex(id)
	if i < 0 {
		return nil, &domain.APIError{StatusCode: 404, Status: "Not Found"}
	}
	if in.Name != "" {
		f.teams[i].Name = in.Name
	}
	if in.Logo != "" {
		f.teams[i].Logo = in.Logo
	}
	t := f.teams[i]
	return &t, nil
}

func (f *fakeBackend) DeleteTeam(_ context.Context, id domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.teams {
		if t.ID == id {
			f.teams = append(f.teams[:i], f.teams[i+1:]...)
			return nil
		}
	}
	return &domain.APIError{StatusCode: 404, Status: "Not Found"}
}

func (f *fakeBackend) AssignMember(_ context.Context, memberID, teamID domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.teamIndex(teamID) < 0 {
		return &domain.APIError{StatusCode: 404, Status: "Not Found"}
	}
	i := f.memberIndex(memberID)
	if i < 0 {
		return &domain.APIError{StatusCode: 404, Status: "Not Found"}
	}
	t := teamID
	f.members[i].TeamID = &t
	return nil
}

func (f *fakeBackend) UnassignMember(_ context.Context, memberID domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.memberIndex(memberID)
	if i < 0 {
		return &domain.APIError{StatusCode: 404, Status: "Not Found"}
	}
	f.members[i].TeamID = nil
	return nil
}

func (f *fakeBackend) ListFeedback(_ context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Feedback
	for _, fb := range f.feedback {
		if filter.TargetType != "" && fb.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != 0 && fb.TargetID != filter.TargetID {
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

func (f *fakeBackend) CreateFeedback(_ context.Context, in domain.NewFeedback) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var name string
	switch in.TargetType {
	case domain.TargetMember:
		i := f.memberIndex(in.TargetID)
		if i < 0 {
			return nil, &domain.APIError{StatusCode: 404, Status: "Not Found"}
		}
		name = f.members[i].Name
	case domain.TargetTeam:
		i := f.teamIndex(in.TargetID)
		if i < 0 {
			return nil, &domain.APIError{StatusCode: 404, Status: "Not Found"}
		}
		name = f.teams[i].Name
	default:
		return nil, &domain.APIError{StatusCode: 400, Status: "Bad Request"}
	}
	fb := domain.Feedback{
		ID:         f.id(),
		Content:    in.Content,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		TargetName: name,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.feedback = append(f.feedback, fb)
	return &fb, nil
}

func (f *fakeBackend) UpdateFeedback(_ context.Context, id domain.ID, in domain.FeedbackUpdate) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.feedback {
		if f.feedback[i].ID == id {
			if in.Content != "" {
				f.feedback[i].Content = in.Content
			}
			fb := f.feedback[i]
			return &fb, nil
		}
	}
	return nil, &domain.APIError{StatusCode: 404, Status: "Not Found"}
}

func (f *fakeBackend) DeleteFeedback(_ context.Context, id domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, fb := range f.feedback {
		if fb.ID == id {
			f.feedback = append(f.feedback[:i], f.feedback[i+1:]...)
			return nil
		}
	}
	return &domain.APIError{StatusCode: 404, Status: "Not Found"}
}

func (f *fakeBackend) memberIndex(id domain.ID) int {
	for i, m := range f.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) teamIndex(id domain.ID) int {
	for i, t := range f.teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}
