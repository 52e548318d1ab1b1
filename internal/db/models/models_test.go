package models

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time.Parse(%q): %v", s, err)
	}
	return v
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("time.Parse(%q): %v", s, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Closed variants
// ---------------------------------------------------------------------------

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"member", RoleMember, false},
		{"owner", "", true},
		{"", "", true},
		{"Admin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimeEntryStatus(t *testing.T) {
	for _, s := range []string{"draft", "submitted", "approved", "returned"} {
		if _, err := ParseTimeEntryStatus(s); err != nil {
			t.Errorf("ParseTimeEntryStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseTimeEntryStatus("archived"); err == nil {
		t.Error("ParseTimeEntryStatus(archived) should fail")
	}
}

func TestParseCertificateStatus(t *testing.T) {
	if _, err := ParseCertificateStatus("expiring"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseCertificateStatus("revoked"); err == nil {
		t.Error("ParseCertificateStatus(revoked) should fail")
	}
}

func TestParseLeaveDecision(t *testing.T) {
	if st, err := ParseLeaveDecision("Approved"); err != nil || st != LeaveApproved {
		t.Errorf("ParseLeaveDecision(Approved) = %q, %v", st, err)
	}
	if st, err := ParseLeaveDecision("Rejected"); err != nil || st != LeaveRejected {
		t.Errorf("ParseLeaveDecision(Rejected) = %q, %v", st, err)
	}
	if _, err := ParseLeaveDecision("Pending"); err == nil {
		t.Error("ParseLeaveDecision(Pending) should fail")
	}
	if _, err := ParseLeaveDecision("approved"); err == nil {
		t.Error("ParseLeaveDecision is case sensitive")
	}
}

// ---------------------------------------------------------------------------
// Membership helpers
// ---------------------------------------------------------------------------

func TestMembership_IsActiveAdmin(t *testing.T) {
	var nilMembership *Membership
	if nilMembership.IsActive() {
		t.Error("nil membership must not be active")
	}
	m := &Membership{Role: RoleAdmin, Status: MembershipActive}
	if !m.IsActiveAdmin() {
		t.Error("active admin should be IsActiveAdmin")
	}
	m.Status = MembershipRemoved
	if m.IsActiveAdmin() {
		t.Error("removed admin must not be IsActiveAdmin")
	}
	m = &Membership{Role: RoleMember, Status: MembershipActive}
	if m.IsActiveAdmin() {
		t.Error("member must not be IsActiveAdmin")
	}
}

// ---------------------------------------------------------------------------
// Approval state machine
// ---------------------------------------------------------------------------

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from    TimeEntryStatus
		action  ApprovalAction
		want    TimeEntryStatus
		wantErr bool
	}{
		{StatusDraft, ActionSubmit, StatusSubmitted, false},
		{StatusReturned, ActionSubmit, StatusSubmitted, false},
		{StatusSubmitted, ActionSubmit, StatusSubmitted, true},
		{StatusApproved, ActionSubmit, StatusApproved, true},
		{StatusSubmitted, ActionApprove, StatusApproved, false},
		{StatusDraft, ActionApprove, StatusDraft, true},
		{StatusReturned, ActionApprove, StatusReturned, true},
		{StatusApproved, ActionApprove, StatusApproved, true},
		{StatusSubmitted, ActionReturn, StatusReturned, false},
		{StatusDraft, ActionReturn, StatusDraft, true},
		{StatusApproved, ActionReturn, StatusApproved, true},
		{StatusSubmitted, ApprovalAction("unlock"), StatusSubmitted, true},
	}
	for _, tt := range tests {
		got, err := NextStatus(tt.from, tt.action)
		if (err != nil) != tt.wantErr {
			t.Errorf("NextStatus(%s, %s) error = %v, wantErr %v", tt.from, tt.action, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("NextStatus(%s, %s) error should wrap ErrInvalidTransition, got %v", tt.from, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("NextStatus(%s, %s) = %s, want %s", tt.from, tt.action, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Duration and overlap
// ---------------------------------------------------------------------------

func TestDurationMinutes_Floors(t *testing.T) {
	start := mustTime(t, "2024-01-15T09:00:00Z")
	tests := []struct {
		end  time.Time
		want int
	}{
		{start.Add(60 * time.Minute), 60},
		{start.Add(59*time.Minute + 59*time.Second), 59},
		{start.Add(90*time.Minute + 30*time.Second), 90},
		{start.Add(30 * time.Second), 0},
		{start, 0},
		{start.Add(-time.Hour), 0},
	}
	for _, tt := range tests {
		if got := DurationMinutes(start, tt.end); got != tt.want {
			t.Errorf("DurationMinutes(%v) = %d, want %d", tt.end.Sub(start), got, tt.want)
		}
	}
}

func TestTimeEntry_SetIntervalRecomputesDuration(t *testing.T) {
	e := &TimeEntry{}
	start := mustTime(t, "2024-01-15T09:00:00Z")
	e.SetInterval(start, start.Add(2*time.Hour))
	if e.DurationMinutes != 120 {
		t.Fatalf("DurationMinutes = %d, want 120", e.DurationMinutes)
	}
	e.SetInterval(start, start.Add(45*time.Minute+10*time.Second))
	if e.DurationMinutes != 45 {
		t.Errorf("DurationMinutes after edit = %d, want 45", e.DurationMinutes)
	}
}

func TestTimeEntry_Overlaps(t *testing.T) {
	a := &TimeEntry{}
	a.SetInterval(mustTime(t, "2024-01-15T09:00:00Z"), mustTime(t, "2024-01-15T10:00:00Z"))

	if !a.Overlaps(mustTime(t, "2024-01-15T09:30:00Z"), mustTime(t, "2024-01-15T10:30:00Z")) {
		t.Error("09:30-10:30 should overlap 09:00-10:00")
	}
	if a.Overlaps(mustTime(t, "2024-01-15T10:00:00Z"), mustTime(t, "2024-01-15T11:00:00Z")) {
		t.Error("adjacent 10:00-11:00 must not overlap 09:00-10:00")
	}
	if a.Overlaps(mustTime(t, "2024-01-15T08:00:00Z"), mustTime(t, "2024-01-15T09:00:00Z")) {
		t.Error("adjacent 08:00-09:00 must not overlap 09:00-10:00")
	}
	if !a.Overlaps(mustTime(t, "2024-01-15T08:00:00Z"), mustTime(t, "2024-01-15T11:00:00Z")) {
		t.Error("enclosing interval should overlap")
	}
}

// ---------------------------------------------------------------------------
// Period locks and dates
// ---------------------------------------------------------------------------

func TestPeriodLock_CoversInclusive(t *testing.T) {
	l := &PeriodLock{StartDate: mustDate(t, "2024-01-01"), EndDate: mustDate(t, "2024-01-31")}
	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-01-31"} {
		if !l.Covers(mustDate(t, d)) {
			t.Errorf("lock should cover %s", d)
		}
	}
	for _, d := range []string{"2023-12-31", "2024-02-01"} {
		if l.Covers(mustDate(t, d)) {
			t.Errorf("lock must not cover %s", d)
		}
	}
	if !l.Covers(mustTime(t, "2024-01-31T23:59:00Z")) {
		t.Error("lock should cover the whole last day")
	}
}

func TestPeriodLock_UnlockedDoesNotCover(t *testing.T) {
	now := time.Now()
	l := &PeriodLock{StartDate: mustDate(t, "2024-01-01"), EndDate: mustDate(t, "2024-01-31"), UnlockedAt: &now}
	if l.Covers(mustDate(t, "2024-01-15")) {
		t.Error("unlocked range must not cover dates")
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := map[string]string{
		"2024-01-15": "2024-01-15", // Monday
		"2024-01-17": "2024-01-15",
		"2024-01-21": "2024-01-15", // Sunday
		"2024-01-22": "2024-01-22",
	}
	for in, want := range tests {
		if got := StartOfWeek(mustDate(t, in)).Format(DateLayout); got != want {
			t.Errorf("StartOfWeek(%s) = %s, want %s", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Certificates
// ---------------------------------------------------------------------------

func TestCertificate_ExpiringSoon(t *testing.T) {
	today := mustDate(t, "2024-03-01")
	in10 := today.AddDate(0, 0, 10)
	in30 := today.AddDate(0, 0, 30)
	in31 := today.AddDate(0, 0, 31)

	tests := []struct {
		name string
		cert Certificate
		want bool
	}{
		{"no expiry", Certificate{Status: CertificateValid}, false},
		{"in 10 days", Certificate{Status: CertificateValid, ExpiryDate: &in10}, true},
		{"boundary 30 days", Certificate{Status: CertificateValid, ExpiryDate: &in30}, true},
		{"31 days", Certificate{Status: CertificateValid, ExpiryDate: &in31}, false},
		{"already expired status", Certificate{Status: CertificateExpired, ExpiryDate: &in10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cert.ExpiringSoon(today); got != tt.want {
				t.Errorf("ExpiringSoon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCertificate_SweptStatus(t *testing.T) {
	today := mustDate(t, "2024-03-01")
	past := today.AddDate(0, 0, -1)
	soon := today.AddDate(0, 0, 5)
	later := today.AddDate(0, 3, 0)

	tests := []struct {
		name    string
		cert    Certificate
		want    CertificateStatus
		changed bool
	}{
		{"valid far future", Certificate{Status: CertificateValid, ExpiryDate: &later}, CertificateValid, false},
		{"valid soon", Certificate{Status: CertificateValid, ExpiryDate: &soon}, CertificateExpiring, true},
		{"valid past", Certificate{Status: CertificateValid, ExpiryDate: &past}, CertificateExpired, true},
		{"expiring past", Certificate{Status: CertificateExpiring, ExpiryDate: &past}, CertificateExpired, true},
		{"expiring soon stays", Certificate{Status: CertificateExpiring, ExpiryDate: &soon}, CertificateExpiring, false},
		{"draft ignored", Certificate{Status: CertificateDraft, ExpiryDate: &past}, CertificateDraft, false},
		{"no expiry", Certificate{Status: CertificateValid}, CertificateValid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := tt.cert.SweptStatus(today, ExpiringSoonWindow)
			if got != tt.want || changed != tt.changed {
				t.Errorf("SweptStatus() = (%s, %v), want (%s, %v)", got, changed, tt.want, tt.changed)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Invitations, normalization, JSONMap
// ---------------------------------------------------------------------------

func TestInvitation_CanAccept(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}
	if !inv.CanAccept(now) {
		t.Error("pending unexpired invitation should be acceptable")
	}
	inv.ExpiresAt = now.Add(-time.Minute)
	if inv.CanAccept(now) {
		t.Error("expired invitation must not be acceptable")
	}
	inv = &Invitation{Status: InvitationRevoked, ExpiresAt: now.Add(time.Hour)}
	if inv.CanAccept(now) {
		t.Error("revoked invitation must not be acceptable")
	}
}

func TestNewInvitationToken(t *testing.T) {
	a, b := NewInvitationToken(), NewInvitationToken()
	if len(a) != 32 {
		t.Errorf("token length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("tokens should be unique")
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeSlug(" Acme-Corp "); got != "acme-corp" {
		t.Errorf("NormalizeSlug = %q", got)
	}
	o := &Organization{}
	o.ApplyDefaults()
	if o.Timezone != DefaultTimezone || o.DefaultWorkweek != DefaultWorkweek {
		t.Errorf("ApplyDefaults = %q/%q", o.Timezone, o.DefaultWorkweek)
	}
}

func TestJSONMap_RoundTrip(t *testing.T) {
	m := JSONMap{"status": "submitted", "project_id": float64(3)}
	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var out JSONMap
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out["status"] != "submitted" || out["project_id"] != float64(3) {
		t.Errorf("round trip = %v", out)
	}
	if err := out.Scan(nil); err != nil || out != nil {
		t.Errorf("Scan(nil) = %v, %v", out, err)
	}
	if err := out.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}
