package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaff/outstaff/internal/db/models"
)

const orgID = int64(10)

var (
	owner  = Actor{UserID: 3, Membership: &models.Membership{UserID: 3, OrgID: orgID, Role: models.RoleMember, Status: models.MembershipActive}}
	other  = Actor{UserID: 4, Membership: &models.Membership{UserID: 4, OrgID: orgID, Role: models.RoleMember, Status: models.MembershipActive}}
	admin  = Actor{UserID: 1, Membership: &models.Membership{UserID: 1, OrgID: orgID, Role: models.RoleAdmin, Status: models.MembershipActive}}
	monday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
)

func newTimesheet(t *testing.T) (*TimesheetService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewTimesheetService(store, store, store, nil)
	svc.now = func() time.Time { return monday.Add(3*24*time.Hour + 15*time.Hour) }
	return svc, store
}

func interval(day time.Time, from, to string) EntryInput {
	parse := func(hm string) time.Time {
		t, err := time.Parse("15:04", hm)
		if err != nil {
			panic(err)
		}
		return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return EntryInput{EntryDate: day, StartAt: parse(from), EndAt: parse(to), Billable: true}
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	got, ok := ValidationMessage(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, msg, got)
}

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

func TestCreateEntry_ComputesFloorMinutes(t *testing.T) {
	svc, _ := newTimesheet(t)
	in := interval(monday, "09:00", "10:30")
	in.EndAt = in.EndAt.Add(59 * time.Second)

	e, err := svc.CreateEntry(context.Background(), owner, orgID, in)
	require.NoError(t, err)
	assert.Equal(t, 90, e.DurationMinutes)
	assert.Equal(t, models.StatusDraft, e.Status)
}

func TestCreateEntry_EndNotAfterStart(t *testing.T) {
	svc, _ := newTimesheet(t)
	_, err := svc.CreateEntry(context.Background(), owner, orgID, interval(monday, "10:00", "10:00"))
	requireValidation(t, err, MsgEndBeforeStart)
}

func TestCreateEntry_ProjectRequired(t *testing.T) {
	svc, store := newTimesheet(t)
	store.policy.RequireProject = true

	_, err := svc.CreateEntry(context.Background(), owner, orgID, interval(monday, "09:00", "10:00"))
	requireValidation(t, err, MsgProjectRequired)

	in := interval(monday, "09:00", "10:00")
	project := int64(4)
	in.ProjectID = &project
	_, err = svc.CreateEntry(context.Background(), owner, orgID, in)
	require.NoError(t, err)
}

func TestCreateEntry_UnknownProjectAndActivity(t *testing.T) {
	svc, _ := newTimesheet(t)
	missing := int64(99)

	in := interval(monday, "09:00", "10:00")
	in.ProjectID = &missing
	_, err := svc.CreateEntry(context.Background(), owner, orgID, in)
	requireValidation(t, err, MsgUnknownProject)

	in = interval(monday, "09:00", "10:00")
	in.ActivityID = &missing
	_, err = svc.CreateEntry(context.Background(), owner, orgID, in)
	requireValidation(t, err, MsgUnknownActivity)
}

func TestCreateEntry_Overlap(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.CreateEntry(ctx, owner, orgID, interval(monday, "10:00", "12:00"))
	requireValidation(t, err, MsgOverlap)

	// touching intervals do not overlap
	_, err = svc.CreateEntry(ctx, owner, orgID, interval(monday, "11:00", "12:00"))
	require.NoError(t, err)

	// another user's entries never conflict
	_, err = svc.CreateEntry(ctx, other, orgID, interval(monday, "09:30", "10:30"))
	require.NoError(t, err)
}

func TestCreateEntry_LockedPeriodInclusive(t *testing.T) {
	svc, store := newTimesheet(t)
	store.lock("2024-03-01", "2024-03-11")

	_, err := svc.CreateEntry(context.Background(), owner, orgID, interval(monday, "09:00", "10:00"))
	requireValidation(t, err, MsgPeriodLocked)

	_, err = svc.CreateEntry(context.Background(), owner, orgID, interval(monday.AddDate(0, 0, 1), "09:00", "10:00"))
	require.NoError(t, err)
}

func TestCreateEntry_OverlapCheckedBeforeLock(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "11:00"))
	require.NoError(t, err)
	store.lock("2024-03-11", "2024-03-11")

	_, err = svc.CreateEntry(ctx, owner, orgID, interval(monday, "10:00", "12:00"))
	requireValidation(t, err, MsgOverlap)
}

func TestCreateEntry_StatusOnlyForAdmins(t *testing.T) {
	svc, _ := newTimesheet(t)
	approved := models.StatusApproved

	in := interval(monday, "09:00", "10:00")
	in.Status = &approved
	e, err := svc.CreateEntry(context.Background(), owner, orgID, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, e.Status)

	in = interval(monday, "09:00", "10:00")
	in.Status = &approved
	e, err = svc.CreateEntry(context.Background(), admin, orgID, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, e.Status)
}

func TestCreateEntry_StoreFailure(t *testing.T) {
	svc, store := newTimesheet(t)
	boom := errors.New("connection reset")
	store.failWith = boom

	_, err := svc.CreateEntry(context.Background(), owner, orgID, interval(monday, "09:00", "10:00"))
	assert.ErrorIs(t, err, boom)
	_, isValidation := ValidationMessage(err)
	assert.False(t, isValidation)
}

// ---------------------------------------------------------------------------
// Edit and delete
// ---------------------------------------------------------------------------

func TestUpdateEntry_ExcludesSelfFromOverlap(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	updated, err := svc.UpdateEntry(ctx, owner, orgID, e.ID, interval(monday, "09:30", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, 90, updated.DurationMinutes)
}

func TestUpdateEntry_ExistingDateLockedFirst(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	store.lock("2024-03-11", "2024-03-11")

	// even an invalid interval reports the lock on the existing date
	_, err = svc.UpdateEntry(ctx, owner, orgID, e.ID, interval(monday.AddDate(0, 0, 1), "10:00", "09:00"))
	requireValidation(t, err, MsgEntryLocked)
}

func TestUpdateEntry_MovingIntoLockedPeriod(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	store.lock("2024-03-01", "2024-03-08")

	_, err = svc.UpdateEntry(ctx, owner, orgID, e.ID, interval(monday.AddDate(0, 0, -4), "09:00", "10:00"))
	requireValidation(t, err, MsgPeriodLocked)
}

func TestUpdateEntry_Permissions(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.UpdateEntry(ctx, other, orgID, e.ID, interval(monday, "09:00", "10:30"))
	assert.ErrorIs(t, err, ErrForbidden)

	approved := models.StatusApproved
	in := interval(monday, "09:00", "10:30")
	in.Status = &approved
	_, err = svc.UpdateEntry(ctx, owner, orgID, e.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.UpdateEntry(ctx, admin, orgID, e.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
}

func TestUpdateEntry_NotFoundInOtherOrg(t *testing.T) {
	svc, _ := newTimesheet(t)
	e, err := svc.CreateEntry(context.Background(), owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.UpdateEntry(context.Background(), owner, 11, e.ID, interval(monday, "09:00", "10:00"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEntry(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	locked, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	free, err := svc.CreateEntry(ctx, owner, orgID, interval(monday.AddDate(0, 0, 1), "09:00", "10:00"))
	require.NoError(t, err)
	store.lock("2024-03-11", "2024-03-11")

	assert.ErrorIs(t, svc.DeleteEntry(ctx, other, orgID, free.ID), ErrForbidden)
	requireValidation(t, svc.DeleteEntry(ctx, owner, orgID, locked.ID), MsgEntryLocked)
	require.NoError(t, svc.DeleteEntry(ctx, admin, orgID, free.ID))
	_, err = svc.GetEntry(ctx, owner, orgID, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ---------------------------------------------------------------------------
// Approval workflow
// ---------------------------------------------------------------------------

func TestApprovalWorkflow_SubmitApprove(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, other, orgID, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	submitted, err := svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)

	_, err = svc.Approve(ctx, owner, orgID, e.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := svc.Approve(ctx, admin, orgID, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.UserID, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Nil(t, approved.ReturnReason)

	require.Len(t, store.logs, 2)
	assert.Equal(t, models.ActionSubmit, store.logs[0].Action)
	assert.Equal(t, models.ActionApprove, store.logs[1].Action)
}

func TestApprovalWorkflow_ReturnAndResubmit(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)

	returned, err := svc.Return(ctx, admin, orgID, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnReason)
	assert.Equal(t, models.DefaultReturnReason, *returned.ReturnReason)

	_, err = svc.UpdateEntry(ctx, owner, orgID, e.ID, interval(monday, "09:00", "09:45"))
	require.NoError(t, err)
	resubmitted, err := svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, resubmitted.Status)

	comment := "Missing project"
	returned, err = svc.Return(ctx, admin, orgID, e.ID, &comment)
	require.NoError(t, err)
	assert.Equal(t, comment, *returned.ReturnReason)
	assert.Len(t, store.logs, 4)
}

func TestApprovalWorkflow_OnlySubmitted(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, admin, orgID, e.ID, nil)
	requireValidation(t, err, MsgOnlySubmittedApp)
	_, err = svc.Return(ctx, admin, orgID, e.ID, nil)
	requireValidation(t, err, MsgOnlySubmittedRet)
	assert.Empty(t, store.logs)

	got, err := svc.GetEntry(ctx, owner, orgID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)
}

func TestApprovalWorkflow_ApproveRespectsLockReturnDoesNot(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)
	store.lock("2024-03-11", "2024-03-17")

	_, err = svc.Approve(ctx, admin, orgID, e.ID, nil)
	requireValidation(t, err, MsgPeriodLocked)

	returned, err := svc.Return(ctx, admin, orgID, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Status)

	_, err = svc.Submit(ctx, owner, orgID, e.ID)
	requireValidation(t, err, MsgPeriodLocked)
}

func TestApprovalWorkflow_RecordsActivity(t *testing.T) {
	store := newMemStore()
	sink := newActivitySink()
	svc := NewTimesheetService(store, store, store, NewActivityRecorder(sink))
	ctx := context.Background()

	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)

	select {
	case line := <-sink.lines:
		assert.Contains(t, line, "Submitted time entry")
	case <-time.After(2 * time.Second):
		t.Fatal("activity line was not recorded")
	}
}

// ---------------------------------------------------------------------------
// Dashboard and reports
// ---------------------------------------------------------------------------

func TestDashboard(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	prevWeek := monday.AddDate(0, 0, -3)
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(prevWeek, "09:00", "17:00"))
	require.NoError(t, err)
	e, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "09:00", "11:00"))
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, other, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, orgID, e.ID)
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, owner, orgID)
	require.NoError(t, err)
	assert.Len(t, d.RecentEntries, 2)
	assert.Len(t, d.PendingApprovals, 1)
	assert.Equal(t, 120, d.WeekTotal)
	assert.Equal(t, 180, d.OrgWeekTotal)
}

func TestBuildReport_NonAdminSeesOwnEntries(t *testing.T) {
	svc, store := newTimesheet(t)
	ctx := context.Background()
	threshold := 8
	store.policy.OvertimeDailyThreshold = &threshold

	_, err := svc.CreateEntry(ctx, owner, orgID, interval(monday, "08:00", "17:30"))
	require.NoError(t, err)
	in := interval(monday.AddDate(0, 0, 1), "09:00", "10:00")
	in.Billable = false
	_, err = svc.CreateEntry(ctx, owner, orgID, in)
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, other, orgID, interval(monday, "09:00", "10:00"))
	require.NoError(t, err)

	otherID := other.UserID
	r, err := svc.BuildReport(ctx, owner, orgID, ReportFilter{UserID: &otherID})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 2)
	assert.Equal(t, 630, r.TotalMinutes)
	assert.Equal(t, 570, r.BillableMinutes)
	assert.Equal(t, 90, r.OvertimeMinutes)

	r, err = svc.BuildReport(ctx, admin, orgID, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 3)
}

func TestBuildReport_DefaultWindowAndInvertedRange(t *testing.T) {
	svc, _ := newTimesheet(t)
	r, err := svc.BuildReport(context.Background(), admin, orgID, ReportFilter{})
	require.NoError(t, err)
	require.NotNil(t, r.From)
	assert.Equal(t, monday.AddDate(0, 0, 3).Add(-DefaultReportWindow), *r.From)
	assert.Nil(t, r.To)

	from := monday
	to := monday.AddDate(0, 0, -1)
	_, err = svc.BuildReport(context.Background(), admin, orgID, ReportFilter{From: &from, To: &to})
	require.Error(t, err)
}

func TestBuildReport_EndDateOnlyHasNoLowerBound(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	old := monday.AddDate(0, -2, 0)
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(old, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, owner, orgID, interval(monday.AddDate(0, 0, 1), "09:00", "10:00"))
	require.NoError(t, err)

	to := monday
	r, err := svc.BuildReport(ctx, admin, orgID, ReportFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, r.Entries, 1)
	assert.True(t, r.Entries[0].EntryDate.Equal(old))
	assert.Nil(t, r.From)
}

func TestBuildReport_FutureStartDateOnly(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	later := monday.AddDate(0, 1, 0)
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(later, "09:00", "10:00"))
	require.NoError(t, err)

	from := later
	r, err := svc.BuildReport(ctx, admin, orgID, ReportFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 1)
	assert.Nil(t, r.To)
}

func TestBuildReport_OtherFiltersDropDefaultWindow(t *testing.T) {
	svc, _ := newTimesheet(t)
	ctx := context.Background()
	_, err := svc.CreateEntry(ctx, owner, orgID, interval(monday.AddDate(-1, 0, 0), "09:00", "10:00"))
	require.NoError(t, err)

	r, err := svc.BuildReport(ctx, admin, orgID, ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, r.Entries)

	userID := owner.UserID
	r, err = svc.BuildReport(ctx, admin, orgID, ReportFilter{UserID: &userID})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 1)
}

func TestOvertimeMinutes(t *testing.T) {
	mk := func(user int64, day time.Time, minutes int) *models.TimeEntry {
		return &models.TimeEntry{UserID: user, EntryDate: day, DurationMinutes: minutes}
	}
	entries := []*models.TimeEntry{
		mk(3, monday, 300), mk(3, monday, 240), // 540 on one day
		mk(4, monday, 480),
		mk(3, monday.AddDate(0, 0, 1), 600),
	}
	threshold := 8
	assert.Equal(t, 60+120, OvertimeMinutes(entries, &threshold))
	assert.Zero(t, OvertimeMinutes(entries, nil))
}
