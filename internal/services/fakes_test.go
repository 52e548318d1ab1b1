package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/outstaff/outstaff/internal/db/models"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// memStore is an in-memory stand-in for the time entry, policy and catalog repositories.
// It applies the same overlap, lock and transition rules the SQL implementation does.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	entries    map[int64]*models.TimeEntry
	logs       []*models.ApprovalLog
	policy     *models.Policy
	locks      []*models.PeriodLock
	projects   map[int64]*models.Project
	activities map[int64]*models.Activity
	failWith   error
}

func newMemStore() *memStore {
	return &memStore{
		entries:    make(map[int64]*models.TimeEntry),
		policy:     &models.Policy{ID: 1, OrgID: 10, Workweek: models.DefaultWorkweek},
		projects:   map[int64]*models.Project{4: {ID: 4, OrgID: 10, Name: "Website"}},
		activities: map[int64]*models.Activity{6: {ID: 6, OrgID: 10, Name: "Design"}},
	}
}

func (m *memStore) lock(start, end string) {
	s, _ := time.Parse(models.DateLayout, start)
	e, _ := time.Parse(models.DateLayout, end)
	m.locks = append(m.locks, &models.PeriodLock{OrgID: 10, StartDate: s, EndDate: e})
}

func (m *memStore) dateLocked(orgID int64, day time.Time) bool {
	for _, l := range m.locks {
		if l.OrgID == orgID && l.Covers(day) {
			return true
		}
	}
	return false
}

func (m *memStore) checkInterval(e *models.TimeEntry) error {
	for _, other := range m.entries {
		if other.ID == e.ID || other.UserID != e.UserID || other.OrgID != e.OrgID {
			continue
		}
		if other.Overlaps(e.StartAt, e.EndAt) {
			return repositories.ErrOverlap
		}
	}
	if m.dateLocked(e.OrgID, e.EntryDate) {
		return repositories.ErrPeriodLocked
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, orgID, id int64) (*models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.OrgID != orgID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) CreateChecked(_ context.Context, e *models.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.checkInterval(e); err != nil {
		return err
	}
	m.nextID++
	e.ID = m.nextID
	e.DurationMinutes = models.DurationMinutes(e.StartAt, e.EndAt)
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) UpdateChecked(_ context.Context, e *models.TimeEntry, previousDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dateLocked(e.OrgID, previousDate) {
		return repositories.ErrEntryLocked
	}
	if err := m.checkInterval(e); err != nil {
		return err
	}
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, orgID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok && e.OrgID == orgID {
		delete(m.entries, id)
	}
	return nil
}

func (m *memStore) ApplyTransition(_ context.Context, t repositories.Transition) (*models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[t.EntryID]
	if !ok || e.OrgID != t.OrgID {
		return nil, nil
	}
	next, err := models.NextStatus(e.Status, t.Action)
	if err != nil {
		return nil, repositories.ErrStaleStatus
	}
	if t.Action != models.ActionReturn && m.dateLocked(e.OrgID, e.EntryDate) {
		return nil, repositories.ErrPeriodLocked
	}
	actor := t.ActorID
	now := time.Now()
	switch t.Action {
	case models.ActionApprove:
		e.ApprovedBy = &actor
		e.ApprovedAt = &now
		e.ReturnReason = nil
	case models.ActionReturn:
		reason := models.DefaultReturnReason
		if t.Comment != nil && *t.Comment != "" {
			reason = *t.Comment
		}
		e.ApprovedBy = &actor
		e.ReturnReason = &reason
	case models.ActionSubmit:
	}
	e.Status = next
	m.logs = append(m.logs, &models.ApprovalLog{OrgID: e.OrgID, TimeEntryID: e.ID, ActorID: &actor, Action: t.Action, Comment: t.Comment})
	cp := *e
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f repositories.TimeEntryFilter) ([]*models.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.TimeEntry, 0)
	for _, e := range m.entries {
		if e.OrgID != f.OrgID {
			continue
		}
		if f.UserID != nil && e.UserID != *f.UserID {
			continue
		}
		if f.ProjectID != nil && (e.ProjectID == nil || *e.ProjectID != *f.ProjectID) {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.From != nil && e.EntryDate.Before(*f.From) {
			continue
		}
		if f.To != nil && e.EntryDate.After(*f.To) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) ListPendingApprovals(ctx context.Context, orgID int64, limit int) ([]*models.TimeEntry, error) {
	submitted := models.StatusSubmitted
	out, err := m.List(ctx, repositories.TimeEntryFilter{OrgID: orgID, Status: &submitted})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SumMinutes(_ context.Context, orgID int64, userID *int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.entries {
		if e.OrgID != orgID || e.StartAt.Before(since) {
			continue
		}
		if userID != nil && e.UserID != *userID {
			continue
		}
		total += e.DurationMinutes
	}
	return total, nil
}

func (m *memStore) GetOrCreate(_ context.Context, orgID int64) (*models.Policy, error) {
	if orgID != m.policy.OrgID {
		return nil, nil
	}
	cp := *m.policy
	return &cp, nil
}

func (m *memStore) IsLocked(_ context.Context, orgID int64, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dateLocked(orgID, day), nil
}

func (m *memStore) GetProject(_ context.Context, orgID, id int64) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.OrgID != orgID {
		return nil, nil
	}
	return p, nil
}

func (m *memStore) GetActivity(_ context.Context, orgID, id int64) (*models.Activity, error) {
	a, ok := m.activities[id]
	if !ok || a.OrgID != orgID {
		return nil, nil
	}
	return a, nil
}

// activitySink collects activity lines written by an ActivityRecorder
type activitySink struct {
	lines chan string
	err   error
}

func newActivitySink() *activitySink {
	return &activitySink{lines: make(chan string, 16)}
}

func (s *activitySink) RecordActivity(_ context.Context, _ int64, _ *int64, action string) error {
	s.lines <- action
	return s.err
}
