package engine

import (
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // Monday

func testEngine(cfg Config) *Engine {
	return New(cfg).WithClock(func() time.Time { return testNow })
}

func defaultEngine() *Engine {
	return testEngine(DefaultConfig())
}

func admin() Actor {
	return Actor{ID: "u_admin", Name: "Admin", Role: entity.RoleAdmin}
}

func supervisor() Actor {
	return Actor{ID: "u_super", Name: "Supervisor", Role: entity.RoleSupervisor}
}

func technician(id string) Actor {
	return Actor{ID: id, Name: "Tech", Role: entity.RoleTechnician}
}

func storeman() Actor {
	return Actor{ID: "u_store", Name: "Storeman", Role: entity.RoleStoreman}
}

func newJob(status string) *entity.Job {
	return &entity.Job{
		ID:        "job_001",
		JobCode:   "JOB-20250602-0001",
		JobType:   entity.JobTypeRepair,
		Status:    status,
		CreatedAt: testNow.Add(-time.Hour),
	}
}

func inProgressJob(techID string) *entity.Job {
	job := newJob(entity.JobStatusInProgress)
	accepted := testNow.Add(-30 * time.Minute)
	job.AssignedTechnicianID = techID
	job.AcceptanceState = entity.AcceptanceAccepted
	job.TechnicianAcceptedAt = &accepted
	return job
}

func rejectionKind(t *testing.T, err error) RejectionKind {
	t.Helper()
	rej, ok := err.(*Rejection)
	require.True(t, ok, "expected *Rejection, got %T: %v", err, err)
	return rej.Kind
}

func TestApplyRejectsUnknownEdges(t *testing.T) {
	e := defaultEngine()

	cases := []struct {
		from   string
		action Action
	}{
		{entity.JobStatusNew, ActionStart},
		{entity.JobStatusNew, ActionComplete},
		{entity.JobStatusNew, ActionFinalize},
		{entity.JobStatusAssigned, ActionAssign},
		{entity.JobStatusAssigned, ActionResume},
		{entity.JobStatusInProgress, ActionAssign},
		{entity.JobStatusInProgress, ActionAccept},
		{entity.JobStatusInProgress, ActionFinalize},
		{entity.JobStatusIncompleteContinuing, ActionComplete},
		{entity.JobStatusAwaitingFinalization, ActionStart},
		{entity.JobStatusCompleted, ActionCancel},
		{entity.JobStatusCancelled, ActionCancel},
		{entity.JobStatusCancelled, ActionStart},
	}
	for _, tc := range cases {
		_, _, err := e.Apply(newJob(tc.from), tc.action, admin(), Payload{Reason: "some valid reason"})
		require.Error(t, err, "from=%s action=%s", tc.from, tc.action)
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err), "from=%s action=%s", tc.from, tc.action)
	}
}

func TestApplyDoesNotMutateInputSnapshot(t *testing.T) {
	e := defaultEngine()
	job := newJob(entity.JobStatusNew)

	updated, _, err := e.Apply(job, ActionAssign, admin(), Payload{TechnicianID: "tech_1"})
	require.NoError(t, err)

	assert.Equal(t, entity.JobStatusNew, job.Status)
	assert.Empty(t, job.AssignedTechnicianID)
	assert.Equal(t, entity.JobStatusAssigned, updated.Status)
	assert.Equal(t, "tech_1", updated.AssignedTechnicianID)
}

func TestAssign(t *testing.T) {
	e := defaultEngine()

	t.Run("requires technician id", func(t *testing.T) {
		_, _, err := e.Apply(newJob(entity.JobStatusNew), ActionAssign, admin(), Payload{})
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})

	t.Run("technician role cannot assign", func(t *testing.T) {
		_, _, err := e.Apply(newJob(entity.JobStatusNew), ActionAssign, technician("tech_1"), Payload{TechnicianID: "tech_1"})
		assert.Equal(t, RejectUnauthorized, rejectionKind(t, err))
	})

	t.Run("sets pending acceptance and notifies technician", func(t *testing.T) {
		job, effects, err := e.Apply(newJob(entity.JobStatusNew), ActionAssign, admin(), Payload{TechnicianID: "tech_1"})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusAssigned, job.Status)
		assert.Equal(t, entity.AcceptancePending, job.AcceptanceState)
		assert.NotNil(t, job.AssignedAt)
		assert.Nil(t, job.TechnicianResponseDeadline, "non slot-in jobs have no response deadline")

		require.Len(t, effects, 2)
		assert.Equal(t, EffectNotify, effects[0].Kind)
		assert.Equal(t, RecipientTechnician, effects[0].Recipient)
		assert.Equal(t, EffectAudit, effects[1].Kind)
	})

	t.Run("slot-in jobs get a response deadline", func(t *testing.T) {
		src := newJob(entity.JobStatusNew)
		src.JobType = entity.JobTypeSlotIn
		job, _, err := e.Apply(src, ActionAssign, admin(), Payload{TechnicianID: "tech_1"})
		require.NoError(t, err)
		require.NotNil(t, job.TechnicianResponseDeadline)
		assert.Equal(t, testNow.Add(30*time.Minute), *job.TechnicianResponseDeadline)
	})
}

func TestAcceptReject(t *testing.T) {
	e := defaultEngine()

	assigned := func() *entity.Job {
		job := newJob(entity.JobStatusAssigned)
		job.AssignedTechnicianID = "tech_1"
		job.AcceptanceState = entity.AcceptancePending
		return job
	}

	t.Run("only the assigned technician may accept", func(t *testing.T) {
		_, _, err := e.Apply(assigned(), ActionAccept, technician("tech_2"), Payload{})
		assert.Equal(t, RejectUnauthorized, rejectionKind(t, err))
	})

	t.Run("accept records timestamp once", func(t *testing.T) {
		job, _, err := e.Apply(assigned(), ActionAccept, technician("tech_1"), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.AcceptanceAccepted, job.AcceptanceState)
		require.NotNil(t, job.TechnicianAcceptedAt)
		assert.Nil(t, job.TechnicianRejectedAt)

		_, _, err = e.Apply(job, ActionAccept, technician("tech_1"), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("accept after deadline is rejected", func(t *testing.T) {
		job := assigned()
		expired := testNow.Add(-time.Minute)
		job.TechnicianResponseDeadline = &expired
		_, _, err := e.Apply(job, ActionAccept, technician("tech_1"), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		_, _, err := e.Apply(assigned(), ActionReject, technician("tech_1"), Payload{})
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})

	t.Run("reject returns the job to new and clears assignment", func(t *testing.T) {
		job, effects, err := e.Apply(assigned(), ActionReject, technician("tech_1"), Payload{Reason: "on another site"})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusNew, job.Status)
		assert.Empty(t, job.AssignedTechnicianID)
		assert.NotNil(t, job.TechnicianRejectedAt)
		assert.Nil(t, job.TechnicianAcceptedAt)

		require.NotEmpty(t, effects)
		assert.Equal(t, RecipientAdmin, effects[0].Recipient)
	})
}

func TestStart(t *testing.T) {
	e := defaultEngine()

	acceptedJob := func() *entity.Job {
		job := newJob(entity.JobStatusAssigned)
		accepted := testNow.Add(-10 * time.Minute)
		job.AssignedTechnicianID = "tech_1"
		job.AcceptanceState = entity.AcceptanceAccepted
		job.TechnicianAcceptedAt = &accepted
		return job
	}

	t.Run("requires acceptance unless elevated", func(t *testing.T) {
		job := newJob(entity.JobStatusAssigned)
		job.AssignedTechnicianID = "tech_1"
		job.AcceptanceState = entity.AcceptancePending
		_, _, err := e.Apply(job, ActionStart, technician("tech_1"), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))

		// 管理员可越过接单直接开工
		started, _, err := e.Apply(job, ActionStart, admin(), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusInProgress, started.Status)
	})

	t.Run("sets in progress with timestamps", func(t *testing.T) {
		job, _, err := e.Apply(acceptedJob(), ActionStart, technician("tech_1"), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusInProgress, job.Status)
		require.NotNil(t, job.StartedAt)
		require.NotNil(t, job.RepairStartTime)
	})

	t.Run("courier jobs get no checklist template", func(t *testing.T) {
		job := acceptedJob()
		job.JobType = entity.JobTypeCourier
		started, _, err := e.Apply(job, ActionStart, technician("tech_1"), Payload{})
		require.NoError(t, err)
		assert.Empty(t, started.ChecklistTemplate)

		repair, _, err := e.Apply(acceptedJob(), ActionStart, technician("tech_1"), Payload{})
		require.NoError(t, err)
		assert.Equal(t, ChecklistTemplateMinor, repair.ChecklistTemplate)
	})

	t.Run("initial reading is evaluated but never blocks", func(t *testing.T) {
		prev := 100.0
		reading := 90.0
		job, effects, err := e.Apply(acceptedJob(), ActionStart, technician("tech_1"), Payload{
			HourmeterReading: &reading,
			Forklift:         &ForkliftContext{PreviousReading: &prev},
		})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusInProgress, job.Status)
		assert.True(t, job.HourmeterFlagged)
		assert.Contains(t, []string(job.HourmeterFlagReasons), entity.FlagLowerThanPrevious)
		assert.Equal(t, "tech_1", job.FirstHourmeterRecordedByID)

		var amendment bool
		for _, fx := range effects {
			if fx.Kind == EffectNotify && fx.Recipient == RecipientSupervisor {
				amendment = true
			}
		}
		assert.True(t, amendment, "flagged reading should raise an amendment request")
	})
}

func TestStartUpgradeAdvice(t *testing.T) {
	e := defaultEngine()

	serviceJob := func() *entity.Job {
		job := newJob(entity.JobStatusAssigned)
		accepted := testNow.Add(-10 * time.Minute)
		job.JobType = entity.JobTypeService
		job.AssignedTechnicianID = "tech_1"
		job.TechnicianAcceptedAt = &accepted
		return job
	}
	reading := 1600.0
	ctx := &ForkliftContext{LastServiceHourmeter: 1000}

	t.Run("prompts when overdue", func(t *testing.T) {
		job, _, err := e.Apply(serviceJob(), ActionStart, technician("tech_1"), Payload{
			HourmeterReading: &reading,
			Forklift:         ctx,
		})
		require.NoError(t, err)
		assert.True(t, job.UpgradePrompted)
		assert.Empty(t, job.UpgradeDecision)
		assert.Equal(t, ChecklistTemplateMinor, job.ChecklistTemplate)
	})

	t.Run("upgrade switches checklist template to full service", func(t *testing.T) {
		job, _, err := e.Apply(serviceJob(), ActionStart, technician("tech_1"), Payload{
			HourmeterReading: &reading,
			Forklift:         ctx,
			UpgradeDecision:  entity.UpgradeDecisionUpgrade,
		})
		require.NoError(t, err)
		assert.Equal(t, entity.UpgradeDecisionUpgrade, job.UpgradeDecision)
		assert.Equal(t, ChecklistTemplateFull, job.ChecklistTemplate)
	})

	t.Run("decline keeps the minor template", func(t *testing.T) {
		job, _, err := e.Apply(serviceJob(), ActionStart, technician("tech_1"), Payload{
			HourmeterReading: &reading,
			Forklift:         ctx,
			UpgradeDecision:  entity.UpgradeDecisionDecline,
		})
		require.NoError(t, err)
		assert.Equal(t, entity.UpgradeDecisionDecline, job.UpgradeDecision)
		assert.Equal(t, ChecklistTemplateMinor, job.ChecklistTemplate)
	})
}

func TestRecordHourmeter(t *testing.T) {
	e := defaultEngine()

	t.Run("first recorder may record again", func(t *testing.T) {
		job := inProgressJob("tech_1")
		job.FirstHourmeterRecordedByID = "tech_1"
		reading := 120.0
		updated, _, err := e.Apply(job, ActionRecordHourmeter, technician("tech_1"), Payload{HourmeterReading: &reading})
		require.NoError(t, err)
		assert.Equal(t, 120.0, *updated.HourmeterReading)
	})

	t.Run("other technicians are rejected", func(t *testing.T) {
		job := inProgressJob("tech_1")
		job.FirstHourmeterRecordedByID = "tech_1"
		reading := 120.0
		_, _, err := e.Apply(job, ActionRecordHourmeter, technician("tech_2"), Payload{HourmeterReading: &reading})
		assert.Equal(t, RejectUnauthorized, rejectionKind(t, err))
	})

	t.Run("supervisor may override the recorder", func(t *testing.T) {
		job := inProgressJob("tech_1")
		job.FirstHourmeterRecordedByID = "tech_1"
		reading := 120.0
		_, _, err := e.Apply(job, ActionRecordHourmeter, supervisor(), Payload{HourmeterReading: &reading})
		require.NoError(t, err)
	})
}

func TestContinueTomorrowAndResume(t *testing.T) {
	e := defaultEngine()

	t.Run("requires a reason", func(t *testing.T) {
		_, _, err := e.Apply(inProgressJob("tech_1"), ActionContinueTomorrow, technician("tech_1"), Payload{})
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})

	t.Run("round trip back to in progress", func(t *testing.T) {
		paused, _, err := e.Apply(inProgressJob("tech_1"), ActionContinueTomorrow, technician("tech_1"), Payload{Reason: "waiting for parts"})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusIncompleteContinuing, paused.Status)

		resumed, _, err := e.Apply(paused, ActionResume, technician("tech_1"), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusInProgress, resumed.Status)
	})
}

func TestDeferredCompletion(t *testing.T) {
	e := defaultEngine()

	deferPayload := Payload{
		TechnicianSignature: true,
		Reason:              "customer representative unavailable on site",
		EvidenceMediaIDs:    []string{"media_1", "media_2"},
	}

	t.Run("requires evidence photos", func(t *testing.T) {
		p := deferPayload
		p.EvidenceMediaIDs = nil
		_, _, err := e.Apply(inProgressJob("tech_1"), ActionDeferComplete, technician("tech_1"), p)
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("rejected when customer already signed", func(t *testing.T) {
		job := inProgressJob("tech_1")
		signed := testNow.Add(-time.Minute)
		job.CustomerSignedAt = &signed
		_, _, err := e.Apply(job, ActionDeferComplete, technician("tech_1"), deferPayload)
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("ack window spans business days", func(t *testing.T) {
		job, _, err := e.Apply(inProgressJob("tech_1"), ActionDeferComplete, technician("tech_1"), deferPayload)
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusCompletedAwaitingAck, job.Status)
		require.NotNil(t, job.AckWindowExpiresAt)
		// 周一 + 3个工作日 = 周四
		assert.Equal(t, time.Thursday, job.AckWindowExpiresAt.Weekday())
	})

	t.Run("dispute before expiry moves to disputed", func(t *testing.T) {
		job, _, err := e.Apply(inProgressJob("tech_1"), ActionDeferComplete, technician("tech_1"), deferPayload)
		require.NoError(t, err)

		disputed, _, err := e.Apply(job, ActionDispute, admin(), Payload{Reason: "work not finished"})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusDisputed, disputed.Status)
		require.NotNil(t, disputed.DisputedAt)
	})

	t.Run("expiry auto-resolves to completed without invoicing", func(t *testing.T) {
		job, _, err := e.Apply(inProgressJob("tech_1"), ActionDeferComplete, technician("tech_1"), deferPayload)
		require.NoError(t, err)

		// 窗口未到期不得自动完成
		_, _, err = e.Apply(job, ActionAckExpire, Actor{ID: "sweep", Role: RoleSystem}, Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))

		later := testEngine(DefaultConfig()).WithClock(func() time.Time {
			return job.AckWindowExpiresAt.Add(time.Hour)
		})
		resolved, _, err := later.Apply(job, ActionAckExpire, Actor{ID: "sweep", Role: RoleSystem}, Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusCompleted, resolved.Status)
		assert.Nil(t, resolved.InvoicedAt, "auto-resolution must not invoice")
	})

	t.Run("dispute resolution outcomes", func(t *testing.T) {
		job, _, err := e.Apply(inProgressJob("tech_1"), ActionDeferComplete, technician("tech_1"), deferPayload)
		require.NoError(t, err)
		disputed, _, err := e.Apply(job, ActionDispute, admin(), Payload{Reason: "incomplete"})
		require.NoError(t, err)

		rework, _, err := e.Apply(disputed, ActionResolveDispute, supervisor(), Payload{DisputeOutcome: DisputeOutcomeRework})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusInProgress, rework.Status)

		upheld, _, err := e.Apply(disputed, ActionResolveDispute, supervisor(), Payload{DisputeOutcome: DisputeOutcomeUphold})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusAwaitingFinalization, upheld.Status)
	})
}

func TestComplete(t *testing.T) {
	e := defaultEngine()
	reading := 105.0

	readyPayload := func() Payload {
		return Payload{
			TechnicianSignature: true,
			CustomerSignature:   true,
			AfterPhotoMediaID:   "media_after",
			CheckAll:            true,
		}
	}

	readyJob := func() *entity.Job {
		job := inProgressJob("tech_1")
		job.HourmeterReading = &reading
		job.FirstHourmeterRecordedByID = "tech_1"
		return job
	}

	t.Run("happy path moves to awaiting finalization", func(t *testing.T) {
		job, effects, err := e.Apply(readyJob(), ActionComplete, technician("tech_1"), readyPayload())
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusAwaitingFinalization, job.Status)
		require.NotNil(t, job.CompletedAt)
		require.NotEmpty(t, effects)
		assert.Equal(t, RecipientStoreman, effects[0].Recipient)
	})

	t.Run("missing customer signature", func(t *testing.T) {
		p := readyPayload()
		p.CustomerSignature = false
		_, _, err := e.Apply(readyJob(), ActionComplete, technician("tech_1"), p)
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("missing after photo for repair jobs", func(t *testing.T) {
		p := readyPayload()
		p.AfterPhotoMediaID = ""
		_, _, err := e.Apply(readyJob(), ActionComplete, technician("tech_1"), p)
		rej := err.(*Rejection)
		assert.Equal(t, RejectPreconditionFailed, rej.Kind)
		assert.Contains(t, rej.Detail, "after photo")
	})

	t.Run("courier jobs need neither photo nor hourmeter nor checklist", func(t *testing.T) {
		job := inProgressJob("tech_1")
		job.JobType = entity.JobTypeCourier
		updated, _, err := e.Apply(job, ActionComplete, technician("tech_1"), Payload{
			TechnicianSignature: true,
			CustomerSignature:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusAwaitingFinalization, updated.Status)
	})

	t.Run("incomplete checklist blocks completion", func(t *testing.T) {
		p := readyPayload()
		p.CheckAll = false
		_, _, err := e.Apply(readyJob(), ActionComplete, technician("tech_1"), p)
		rej := err.(*Rejection)
		assert.Equal(t, RejectPreconditionFailed, rej.Kind)
		assert.Contains(t, rej.Detail, "checklist incomplete")
	})

	t.Run("override is policy gated", func(t *testing.T) {
		p := readyPayload()
		p.CheckAll = false
		p.OverrideChecklist = true
		p.Reason = "customer requested early release"

		_, _, err := e.Apply(readyJob(), ActionComplete, supervisor(), p)
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))

		cfg := DefaultConfig()
		cfg.AllowChecklistOverride = true
		permissive := testEngine(cfg)

		// 技师角色不可强制跳过
		_, _, err = permissive.Apply(readyJob(), ActionComplete, technician("tech_1"), p)
		assert.Equal(t, RejectUnauthorized, rejectionKind(t, err))

		job, _, err := permissive.Apply(readyJob(), ActionComplete, supervisor(), p)
		require.NoError(t, err)
		assert.True(t, job.ChecklistOverridden)
		assert.Equal(t, "u_super", job.ChecklistOverrideBy)

		// 理由太短
		p.Reason = "short"
		_, _, err = permissive.Apply(readyJob(), ActionComplete, supervisor(), p)
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})
}

func TestConfirmationAndFinalize(t *testing.T) {
	e := defaultEngine()

	awaiting := func(withParts bool) *entity.Job {
		job := newJob(entity.JobStatusAwaitingFinalization)
		if withParts {
			job.PartsUsed = []entity.PartUsage{{ID: "pu_1", PartNo: "FLT-001", Quantity: 2, UnitPrice: 35}}
		}
		return job
	}

	t.Run("finalize without either gate fails", func(t *testing.T) {
		_, _, err := e.Apply(awaiting(true), ActionFinalize, admin(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("finalize with only parts confirmed fails", func(t *testing.T) {
		job, _, err := e.Apply(awaiting(true), ActionConfirmParts, storeman(), Payload{Notes: "checked against van stock"})
		require.NoError(t, err)
		_, _, err = e.Apply(job, ActionFinalize, admin(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("finalize with only job confirmed fails when parts present", func(t *testing.T) {
		job, _, err := e.Apply(awaiting(true), ActionConfirmJob, supervisor(), Payload{})
		require.NoError(t, err)
		_, _, err = e.Apply(job, ActionFinalize, admin(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("parts gate auto-skips when no parts used", func(t *testing.T) {
		job, _, err := e.Apply(awaiting(false), ActionConfirmJob, supervisor(), Payload{})
		require.NoError(t, err)
		final, effects, err := e.Apply(job, ActionFinalize, admin(), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusCompleted, final.Status)
		assert.True(t, final.PartsConfirmationSkipped)
		require.NotNil(t, final.InvoicedAt)

		var export bool
		for _, fx := range effects {
			if fx.Kind == EffectExport {
				export = true
			}
		}
		assert.True(t, export, "finalize must request an accounting export")
	})

	t.Run("both gates then finalize stamps invoiced_at", func(t *testing.T) {
		job, _, err := e.Apply(awaiting(true), ActionConfirmParts, storeman(), Payload{})
		require.NoError(t, err)
		job, _, err = e.Apply(job, ActionConfirmJob, supervisor(), Payload{})
		require.NoError(t, err)
		final, _, err := e.Apply(job, ActionFinalize, admin(), Payload{})
		require.NoError(t, err)
		assert.Equal(t, entity.JobStatusCompleted, final.Status)
		assert.Equal(t, testNow, *final.InvoicedAt)

		// 重复finalize被拒绝
		_, _, err = e.Apply(final, ActionFinalize, admin(), Payload{})
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err))
	})

	t.Run("storeman cannot confirm the job gate", func(t *testing.T) {
		_, _, err := e.Apply(awaiting(true), ActionConfirmJob, storeman(), Payload{})
		assert.Equal(t, RejectUnauthorized, rejectionKind(t, err))
	})

	t.Run("double parts confirmation is rejected", func(t *testing.T) {
		job, _, err := e.Apply(awaiting(true), ActionConfirmParts, storeman(), Payload{})
		require.NoError(t, err)
		_, _, err = e.Apply(job, ActionConfirmParts, storeman(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})
}

func TestCancel(t *testing.T) {
	e := defaultEngine()

	t.Run("requires a reason", func(t *testing.T) {
		_, _, err := e.Apply(newJob(entity.JobStatusNew), ActionCancel, admin(), Payload{})
		assert.Equal(t, RejectValidation, rejectionKind(t, err))
	})

	t.Run("reachable from any non-completed state", func(t *testing.T) {
		for _, status := range []string{
			entity.JobStatusNew, entity.JobStatusAssigned, entity.JobStatusInProgress,
			entity.JobStatusIncompleteContinuing, entity.JobStatusCompletedAwaitingAck,
			entity.JobStatusDisputed, entity.JobStatusAwaitingFinalization,
		} {
			job, _, err := e.Apply(newJob(status), ActionCancel, admin(), Payload{Reason: "customer cancelled"})
			require.NoError(t, err, "status=%s", status)
			assert.Equal(t, entity.JobStatusCancelled, job.Status)
		}
	})

	t.Run("cancelling twice is rejected", func(t *testing.T) {
		job, _, err := e.Apply(newJob(entity.JobStatusInProgress), ActionCancel, admin(), Payload{Reason: "duplicate job"})
		require.NoError(t, err)
		_, _, err = e.Apply(job, ActionCancel, admin(), Payload{Reason: "duplicate job"})
		assert.Equal(t, RejectInvalidTransition, rejectionKind(t, err))
	})

	t.Run("recorded reading is invalidated not deleted", func(t *testing.T) {
		job := inProgressJob("tech_1")
		reading := 150.0
		job.HourmeterReading = &reading
		cancelled, _, err := e.Apply(job, ActionCancel, admin(), Payload{Reason: "machine scrapped"})
		require.NoError(t, err)
		assert.True(t, cancelled.HourmeterInvalidated)
		require.NotNil(t, cancelled.HourmeterReading)
		assert.Equal(t, 150.0, *cancelled.HourmeterReading)
	})
}

func TestAcknowledgeAndEscalate(t *testing.T) {
	e := defaultEngine()

	slotIn := func(createdAgo time.Duration) *entity.Job {
		job := newJob(entity.JobStatusNew)
		job.JobType = entity.JobTypeSlotIn
		job.SLATargetMinutes = 15
		job.CreatedAt = testNow.Add(-createdAgo)
		return job
	}

	t.Run("acknowledge is one-shot", func(t *testing.T) {
		job, _, err := e.Apply(slotIn(5*time.Minute), ActionAcknowledge, admin(), Payload{})
		require.NoError(t, err)
		require.NotNil(t, job.AcknowledgedAt)
		_, _, err = e.Apply(job, ActionAcknowledge, admin(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("escalation fires exactly once when overdue and unacknowledged", func(t *testing.T) {
		sweep := Actor{ID: "sweep", Role: RoleSystem}

		// 未超时不升级
		_, _, err := e.Apply(slotIn(10*time.Minute), ActionEscalate, sweep, Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))

		job, effects, err := e.Apply(slotIn(16*time.Minute), ActionEscalate, sweep, Payload{})
		require.NoError(t, err)
		require.NotNil(t, job.EscalationTriggeredAt)
		require.NotEmpty(t, effects)
		assert.Equal(t, RecipientAdmin, effects[0].Recipient)

		// 已升级不重复触发
		_, _, err = e.Apply(job, ActionEscalate, sweep, Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))

		// 已响应不升级
		acked := slotIn(20 * time.Minute)
		ack := testNow.Add(-time.Minute)
		acked.AcknowledgedAt = &ack
		_, _, err = e.Apply(acked, ActionEscalate, sweep, Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})

	t.Run("non slot-in jobs are not tracked", func(t *testing.T) {
		_, _, err := e.Apply(newJob(entity.JobStatusNew), ActionAcknowledge, admin(), Payload{})
		assert.Equal(t, RejectPreconditionFailed, rejectionKind(t, err))
	})
}
