package services

import (
	"context"
	"testing"
	"time"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeadService(db *fakeDB) *LeadService {
	return NewLeadService(db.leadStore(), db.docStore())
}

func TestLeadService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("new lead starts as a stage-less draft", func(t *testing.T) {
		db := newFakeDB()
		svc := newTestLeadService(db)

		lead, err := svc.Create(ctx, testTenantID, 7, &CreateLeadInput{
			Name:            "Jane Borrower",
			Email:           "jane@example.com",
			MonthlyIncome:   5000,
			RequestedAmount: 200000,
			Extra:           map[string]interface{}{"loanPurpose": "home"},
		})
		require.NoError(t, err)

		assert.NotZero(t, lead.ID)
		assert.Equal(t, models.LeadStatusDraft, lead.Status)
		assert.Nil(t, lead.CurrentStageID)
		assert.Equal(t, uint(7), lead.CreatedBy)
		assert.Equal(t, "home", lead.DataMap()["loanPurpose"])
	})

	t.Run("name is required", func(t *testing.T) {
		db := newFakeDB()
		svc := newTestLeadService(db)

		_, err := svc.Create(ctx, testTenantID, 7, &CreateLeadInput{Email: "x@y.z"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLeadService_Update(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*fakeDB, *LeadService, *models.Lead) {
		t.Helper()
		db := newFakeDB()
		svc := newTestLeadService(db)
		lead, err := svc.Create(ctx, testTenantID, 7, &CreateLeadInput{Name: "Jane", MonthlyIncome: 5000})
		require.NoError(t, err)
		return db, svc, lead
	}

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		_, svc, lead := seed(t)

		income := 6500.0
		updated, err := svc.Update(ctx, testTenantID, lead.ID, &UpdateLeadInput{MonthlyIncome: &income})
		require.NoError(t, err)
		assert.Equal(t, 6500.0, updated.MonthlyIncome)
		assert.Equal(t, "Jane", updated.Name)
	})

	t.Run("status must be a known value", func(t *testing.T) {
		_, svc, lead := seed(t)

		bad := "archived"
		_, err := svc.Update(ctx, testTenantID, lead.ID, &UpdateLeadInput{Status: &bad})
		assert.ErrorIs(t, err, domain.ErrValidation)

		closed := models.LeadStatusClosed
		updated, err := svc.Update(ctx, testTenantID, lead.ID, &UpdateLeadInput{Status: &closed})
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusClosed, updated.Status)
	})

	t.Run("unknown lead", func(t *testing.T) {
		_, svc, _ := seed(t)

		name := "Ghost"
		_, err := svc.Update(ctx, testTenantID, 999, &UpdateLeadInput{Name: &name})
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})
}

func TestLeadService_Documents(t *testing.T) {
	ctx := context.Background()
	fixedNow := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) (*fakeDB, *LeadService, *models.Lead) {
		t.Helper()
		db := newFakeDB()
		svc := newTestLeadService(db)
		svc.now = func() time.Time { return fixedNow }
		lead, err := svc.Create(ctx, testTenantID, 7, &CreateLeadInput{Name: "Jane"})
		require.NoError(t, err)
		return db, svc, lead
	}

	t.Run("attach and list", func(t *testing.T) {
		_, svc, lead := seed(t)

		doc, err := svc.AddDocument(ctx, testTenantID, lead.ID, 7, &AddDocumentInput{
			Type:     "id_card",
			Category: "identity",
			FileName: "id.pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusSubmitted, doc.Status)
		assert.Equal(t, uint(7), doc.UploadedBy)

		docs, err := svc.ListDocuments(ctx, testTenantID, lead.ID)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("type is required", func(t *testing.T) {
		_, svc, lead := seed(t)

		_, err := svc.AddDocument(ctx, testTenantID, lead.ID, 7, &AddDocumentInput{FileName: "x.pdf"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("review verifies or rejects", func(t *testing.T) {
		_, svc, lead := seed(t)

		doc, err := svc.AddDocument(ctx, testTenantID, lead.ID, 7, &AddDocumentInput{Type: "payslip"})
		require.NoError(t, err)

		reviewed, err := svc.ReviewDocument(ctx, testTenantID, lead.ID, doc.ID, 3, true)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusVerified, reviewed.Status)
		require.NotNil(t, reviewed.VerifiedBy)
		assert.Equal(t, uint(3), *reviewed.VerifiedBy)
		require.NotNil(t, reviewed.VerifiedAt)
		assert.Equal(t, fixedNow, *reviewed.VerifiedAt)

		rejected, err := svc.ReviewDocument(ctx, testTenantID, lead.ID, doc.ID, 3, false)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusRejected, rejected.Status)
	})

	t.Run("document must belong to the lead", func(t *testing.T) {
		_, svc, lead := seed(t)

		other, err := svc.Create(ctx, testTenantID, 7, &CreateLeadInput{Name: "Other"})
		require.NoError(t, err)
		doc, err := svc.AddDocument(ctx, testTenantID, other.ID, 7, &AddDocumentInput{Type: "payslip"})
		require.NoError(t, err)

		_, err = svc.ReviewDocument(ctx, testTenantID, lead.ID, doc.ID, 3, true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
