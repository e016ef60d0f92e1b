package engine

import (
	"testing"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
)

func TestAdviseUpgrade(t *testing.T) {
	t.Run("overdue minor service prompts with overdue hours", func(t *testing.T) {
		advice := AdviseUpgrade(entity.JobTypeService, 1600, 1000)
		assert.True(t, advice.ShouldPrompt)
		assert.Equal(t, 100.0, advice.OverdueHours)
		assert.Equal(t, 1500.0, advice.NextDueAt)
	})

	t.Run("not yet due", func(t *testing.T) {
		advice := AdviseUpgrade(entity.JobTypeService, 1400, 1000)
		assert.False(t, advice.ShouldPrompt)
		assert.Zero(t, advice.OverdueHours)
	})

	t.Run("exactly at the interval boundary", func(t *testing.T) {
		advice := AdviseUpgrade(entity.JobTypeService, 1500, 1000)
		assert.False(t, advice.ShouldPrompt)
	})

	t.Run("only service jobs are advised", func(t *testing.T) {
		for _, jobType := range []string{entity.JobTypeRepair, entity.JobTypeChecking, entity.JobTypeSlotIn, entity.JobTypeCourier} {
			advice := AdviseUpgrade(jobType, 5000, 1000)
			assert.False(t, advice.ShouldPrompt, "job_type=%s", jobType)
		}
	})
}

func TestEvaluateConfirmation(t *testing.T) {
	t.Run("empty parts auto-satisfies the parts gate", func(t *testing.T) {
		job := newJob(entity.JobStatusAwaitingFinalization)
		state := EvaluateConfirmation(job)
		assert.True(t, state.PartsSatisfied)
		assert.True(t, state.PartsSkipped)
		assert.False(t, state.JobSatisfied)
		assert.False(t, state.ReadyToFinalize())
		assert.Equal(t, []string{"job_confirmation"}, state.Missing)
	})

	t.Run("parts present requires explicit confirmation", func(t *testing.T) {
		job := newJob(entity.JobStatusAwaitingFinalization)
		job.PartsUsed = []entity.PartUsage{{PartNo: "FLT-001", Quantity: 1, UnitPrice: 10}}
		state := EvaluateConfirmation(job)
		assert.False(t, state.PartsSatisfied)
		assert.Contains(t, state.Missing, "parts_confirmation")
	})

	t.Run("both gates satisfied", func(t *testing.T) {
		job := newJob(entity.JobStatusAwaitingFinalization)
		job.PartsUsed = []entity.PartUsage{{PartNo: "FLT-001", Quantity: 1, UnitPrice: 10}}
		job.PartsConfirmedAt = &testNow
		job.JobConfirmedAt = &testNow
		state := EvaluateConfirmation(job)
		assert.True(t, state.ReadyToFinalize())
		assert.Empty(t, state.Missing)
	})
}
