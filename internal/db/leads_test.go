package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadColumns() []string {
	return []string{"id", "name", "website", "emails", "source", "created_at", "updated_at"}
}

func TestInsertLead(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs("Acme Widgets", "https://acme.com", "", "directory").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := d.InsertLead(context.Background(), &Lead{
		Name:    "Acme Widgets",
		Website: "https://acme.com",
		Source:  "directory",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadEmails(t *testing.T) {
	t.Run("updates_existing", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET emails = $1")).
			WithArgs("sales@acme.com", "https://acme.com").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := d.UpdateLeadEmails(context.Background(), "https://acme.com", "sales@acme.com")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_lead_errors", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET emails = $1")).
			WithArgs("sales@acme.com", "https://unknown.com").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := d.UpdateLeadEmails(context.Background(), "https://unknown.com", "sales@acme.com")
		assert.Error(t, err)
	})
}

func TestUpdateLead(t *testing.T) {
	t.Run("only_set_fields_change", func(t *testing.T) {
		d, mock := newMockDB(t)
		emails := "sales@acme.com"
		mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET updated_at = NOW(), emails = $2 WHERE website = $1")).
			WithArgs("https://acme.com", "sales@acme.com").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := d.UpdateLead(context.Background(), "https://acme.com", LeadUpdate{Emails: &emails})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multiple_fields", func(t *testing.T) {
		d, mock := newMockDB(t)
		name := "Acme Widgets"
		source := "referral"
		mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET updated_at = NOW(), name = $2, source = $3 WHERE website = $1")).
			WithArgs("https://acme.com", "Acme Widgets", "referral").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := d.UpdateLead(context.Background(), "https://acme.com", LeadUpdate{Name: &name, Source: &source})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_lead_errors", func(t *testing.T) {
		d, mock := newMockDB(t)
		emails := "sales@acme.com"
		mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET")).
			WithArgs("https://unknown.com", "sales@acme.com").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := d.UpdateLead(context.Background(), "https://unknown.com", LeadUpdate{Emails: &emails})
		assert.Error(t, err)
	})
}

func TestGetLeadsWithWebsite(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM leads")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(leadColumns()).
			AddRow(1, "Acme", "https://acme.com", "", "directory", now, now).
			AddRow(2, "Globex", "https://globex.com", "", "referral", now, now))

	leads, err := d.GetLeadsWithWebsite(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "https://acme.com", leads[0].Website)
	assert.Equal(t, "Globex", leads[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLead(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		d, mock := newMockDB(t)
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE website = $1")).
			WithArgs("https://acme.com").
			WillReturnRows(sqlmock.NewRows(leadColumns()).
				AddRow(1, "Acme", "https://acme.com", "sales@acme.com", "directory", now, now))

		lead, err := d.GetLead(context.Background(), "https://acme.com")
		require.NoError(t, err)
		require.NotNil(t, lead)
		assert.Equal(t, "sales@acme.com", lead.Emails)
	})

	t.Run("missing_returns_nil", func(t *testing.T) {
		d, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE website = $1")).
			WithArgs("https://unknown.com").
			WillReturnRows(sqlmock.NewRows(leadColumns()))

		lead, err := d.GetLead(context.Background(), "https://unknown.com")
		require.NoError(t, err)
		assert.Nil(t, lead)
	})
}
