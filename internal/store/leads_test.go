package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestSaveLeadDedupes(t *testing.T) {
	st, mock := newMock(t)
	insert := regexp.QuoteMeta(`INSERT INTO leads (user_id, name, email, website, phone, niche, source, is_unlocked)`)

	mock.ExpectQuery(insert).
		WithArgs("u", "Acme", "info@acme.co.za", "https://acme.co.za", "", "Security Services", "web_search", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-1"))
	mock.ExpectQuery(insert).
		WithArgs("u", "Unknown Business", "info@acme.co.za", "", "", "", "web_search", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ok, err := st.SaveLead(context.Background(), Lead{
		UserID: "u", Name: "Acme", Email: "info@acme.co.za", Website: "https://acme.co.za",
		Niche: "Security Services", IsUnlocked: true,
	})
	if err != nil || !ok {
		t.Fatalf("expected insert, ok=%v err=%v", ok, err)
	}
	ok, err = st.SaveLead(context.Background(), Lead{UserID: "u", Email: "info@acme.co.za"})
	if err != nil || ok {
		t.Fatalf("expected duplicate skip, ok=%v err=%v", ok, err)
	}
	if _, err := st.SaveLead(context.Background(), Lead{Name: "x"}); err == nil {
		t.Fatalf("expected error without user id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentLeads(t *testing.T) {
	st, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC`)).
		WithArgs("u", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "email", "website", "phone", "niche", "source", "status", "is_unlocked", "created_at"}).
			AddRow("l1", "u", "Acme", "info@acme.co.za", "https://acme.co.za", "", "Security Services", "web_search", "new", false, now))

	leads, err := st.ListRecentLeads(context.Background(), "u", 0)
	if err != nil {
		t.Fatalf("ListRecentLeads: %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Acme" {
		t.Fatalf("unexpected leads: %#v", leads)
	}
}

func TestUsersAndRuns(t *testing.T) {
	st, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).WithArgs("u").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "subscription_tier", "automations_count", "created_at"}).
			AddRow("u", "owner@x.co", "pro", 4, now))
	mock.ExpectExec(regexp.QuoteMeta(`automations_count = automations_count + 1`)).WithArgs("u").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO automation_runs`)).
		WithArgs("a", "completed", "Agent execution completed", 3, []byte("[]"), []byte(`[{"status":"succeeded"}]`), now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO idempotency_keys`)).WithArgs("automation.queued", "1-0").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO idempotency_keys`)).WithArgs("automation.queued", "1-0").
		WillReturnRows(sqlmock.NewRows([]string{"bool"}))

	u, err := st.GetUser(ctx, "u")
	if err != nil || u.SubscriptionTier != "pro" || u.AutomationsCount != 4 {
		t.Fatalf("GetUser: %#v %v", u, err)
	}
	if err := st.IncrementAutomationsCount(ctx, "u"); err != nil {
		t.Fatalf("IncrementAutomationsCount: %v", err)
	}
	id, err := st.RecordRun(ctx, AutomationRun{
		AutomationID: "a", Status: "completed", Summary: "Agent execution completed", Steps: 3,
		Observations: []byte(`[{"status":"succeeded"}]`), StartedAt: now, FinishedAt: now,
	})
	if err != nil || id != "run-1" {
		t.Fatalf("RecordRun: %q %v", id, err)
	}
	first, err := st.ClaimIdempotency(ctx, "automation.queued", "1-0")
	if err != nil || !first {
		t.Fatalf("expected first claim, got %v %v", first, err)
	}
	again, err := st.ClaimIdempotency(ctx, "automation.queued", "1-0")
	if err != nil || again {
		t.Fatalf("expected duplicate claim to be rejected, got %v %v", again, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
