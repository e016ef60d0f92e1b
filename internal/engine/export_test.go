package engine

import (
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoicedJob() *entity.Job {
	job := newJob(entity.JobStatusCompleted)
	invoiced := testNow.Add(-time.Hour)
	job.InvoicedAt = &invoiced
	job.LaborCost = 200
	job.PartsUsed = []entity.PartUsage{{Quantity: 2, UnitPrice: 50}}
	return job
}

func TestNewExportRecord(t *testing.T) {
	t.Run("requires an invoiced job", func(t *testing.T) {
		job := newJob(entity.JobStatusAwaitingFinalization)
		_, err := NewExportRecord(job, nil, "INV-001", "DBT-001", "u_acct", testNow)
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("creates a pending record with invoice total", func(t *testing.T) {
		rec, err := NewExportRecord(invoicedJob(), nil, "INV-001", "DBT-001", "u_acct", testNow)
		require.NoError(t, err)
		assert.Equal(t, entity.ExportStatusPending, rec.Status)
		assert.Equal(t, 300.0, rec.Amount)
		assert.Equal(t, 0, rec.RetryCount)
	})

	t.Run("rejected while an active record exists", func(t *testing.T) {
		for _, status := range []string{entity.ExportStatusPending, entity.ExportStatusExported} {
			existing := []entity.AutoCountExportRecord{{ID: "exp_1", Status: status}}
			_, err := NewExportRecord(invoicedJob(), existing, "INV-002", "DBT-001", "u_acct", testNow)
			assert.Equal(t, RejectConflict, rejectionKind(t, err), "status=%s", status)
		}
	})

	t.Run("allowed after a cancelled or failed record", func(t *testing.T) {
		existing := []entity.AutoCountExportRecord{
			{ID: "exp_1", Status: entity.ExportStatusCancelled},
			{ID: "exp_2", Status: entity.ExportStatusFailed},
		}
		_, err := NewExportRecord(invoicedJob(), existing, "INV-002", "DBT-001", "u_acct", testNow)
		assert.NoError(t, err)
	})
}

func TestExportTransitions(t *testing.T) {
	pending := &entity.AutoCountExportRecord{ID: "exp_1", JobID: "job_001", Status: entity.ExportStatusPending}

	t.Run("pending to exported is terminal", func(t *testing.T) {
		rec, err := MarkExported(pending, testNow)
		require.NoError(t, err)
		assert.Equal(t, entity.ExportStatusExported, rec.Status)
		require.NotNil(t, rec.ExportedAt)

		_, err = MarkExported(rec, testNow)
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err))
		_, err = CancelExport(rec, testNow)
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err))
	})

	t.Run("pending to failed records the error", func(t *testing.T) {
		rec, err := MarkExportFailed(pending, "autocount bridge timeout", testNow)
		require.NoError(t, err)
		assert.Equal(t, entity.ExportStatusFailed, rec.Status)
		assert.Equal(t, "autocount bridge timeout", rec.ExportError)

		_, err = MarkExportFailed(pending, "", testNow)
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})

	t.Run("retry increments the counter", func(t *testing.T) {
		failed, err := MarkExportFailed(pending, "timeout", testNow)
		require.NoError(t, err)

		retried, err := RetryExport(failed, nil, testNow)
		require.NoError(t, err)
		assert.Equal(t, entity.ExportStatusPending, retried.Status)
		assert.Equal(t, 1, retried.RetryCount)
	})

	t.Run("retry is rejected while a sibling record is active", func(t *testing.T) {
		// 同工单已有exported记录时，重试failed记录违反单活动记录不变式
		failed := &entity.AutoCountExportRecord{ID: "exp_old", JobID: "job_001", Status: entity.ExportStatusFailed}
		siblings := []entity.AutoCountExportRecord{
			{ID: "exp_new", JobID: "job_001", Status: entity.ExportStatusExported},
		}
		_, err := RetryExport(failed, siblings, testNow)
		assert.Equal(t, RejectConflict, rejectionKind(t, err))
	})

	t.Run("pending to cancelled is terminal", func(t *testing.T) {
		rec, err := CancelExport(pending, testNow)
		require.NoError(t, err)
		assert.Equal(t, entity.ExportStatusCancelled, rec.Status)

		_, err = RetryExport(rec, nil, testNow)
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err))
	})
}
