package service

import (
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInvoice(t *testing.T) {
	invoiced := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	job := &entity.Job{
		ID:        "job-1",
		JobCode:   "JOB-2025-000042",
		Title:     "Quarterly service",
		LaborCost: 150,
		Customer:  &entity.Customer{Name: "Acme Logistics"},
		PartsUsed: []entity.PartUsage{
			{PartNo: "FLT-OIL-5W30", PartName: "Engine oil", Quantity: 2, UnitPrice: 45},
		},
		ExtraCharges: []entity.Charge{
			{Description: "Callout fee", Amount: 80},
		},
		InvoicedAt: &invoiced,
	}
	record := &entity.AutoCountExportRecord{
		InvoiceNo:  "INV-2025-000042",
		DebtorCode: "DEBTOR-ACME",
		CreatedAt:  time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC),
	}

	inv := buildInvoice(job, record)

	assert.Equal(t, "INV-2025-000042", inv.DocNo)
	assert.Equal(t, "DEBTOR-ACME", inv.DebtorCode)
	assert.Equal(t, "Acme Logistics", inv.DebtorName)
	assert.Equal(t, invoiced, inv.InvoiceDate)
	require.Len(t, inv.Lines, 3)
	assert.Equal(t, "FLT-OIL-5W30", inv.Lines[0].ItemCode)
	assert.Equal(t, 90.0, inv.Lines[0].Amount)
	assert.Equal(t, "CHARGE", inv.Lines[1].ItemCode)
	assert.Equal(t, "LABOUR", inv.Lines[2].ItemCode)
	assert.Equal(t, 320.0, inv.Total)
}

func TestBuildInvoiceNoLabour(t *testing.T) {
	job := &entity.Job{JobCode: "JOB-2025-000043", Title: "Repair"}
	record := &entity.AutoCountExportRecord{InvoiceNo: "INV-2025-000043", CreatedAt: time.Now().UTC()}

	inv := buildInvoice(job, record)

	assert.Empty(t, inv.Lines)
	assert.Equal(t, record.CreatedAt, inv.InvoiceDate)
}

func TestAuditFromEffect(t *testing.T) {
	fx := engine.SideEffect{
		Kind: engine.EffectAudit,
		Meta: map[string]interface{}{
			"action":      "complete",
			"from_status": "in_progress",
			"to_status":   "completed",
			"actor_id":    "tech-1",
			"actor_role":  "technician",
			"end_reading": 1234.5,
		},
	}

	log := auditFromEffect("job-1", fx)

	assert.Equal(t, "job-1", log.JobID)
	assert.Equal(t, "complete", log.Action)
	assert.Equal(t, "in_progress", log.FromStatus)
	assert.Equal(t, "completed", log.ToStatus)
	assert.Equal(t, "tech-1", log.ActorID)
	assert.Equal(t, "technician", log.ActorRole)
	assert.Equal(t, 1234.5, log.Detail["end_reading"])
	assert.NotContains(t, log.Detail, "action")
}
