package engine

import (
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateSlaNonSlotIn(t *testing.T) {
	job := newJob(entity.JobStatusNew)
	status := EvaluateSla(job, testNow)
	assert.False(t, status.Applicable)
}

func TestEvaluateSlaWithinTarget(t *testing.T) {
	job := newJob(entity.JobStatusNew)
	job.JobType = entity.JobTypeSlotIn
	job.SLATargetMinutes = 15
	job.CreatedAt = testNow.Add(-10 * time.Minute)

	status := EvaluateSla(job, testNow)
	assert.True(t, status.Applicable)
	assert.True(t, status.PendingAck)
	assert.False(t, status.Overdue)
	assert.InDelta(t, 5, status.RemainingMinutes, 0.01)
}

func TestEvaluateSlaOverdue(t *testing.T) {
	// T创建，SLA 15分钟，T+16分钟未响应 → 超时
	job := newJob(entity.JobStatusNew)
	job.JobType = entity.JobTypeSlotIn
	job.SLATargetMinutes = 15
	job.CreatedAt = testNow.Add(-16 * time.Minute)

	status := EvaluateSla(job, testNow)
	assert.True(t, status.Overdue)
	assert.True(t, status.PendingAck)
	assert.False(t, status.Escalated)
}

func TestEvaluateSlaDefaultTarget(t *testing.T) {
	job := newJob(entity.JobStatusNew)
	job.JobType = entity.JobTypeSlotIn
	job.CreatedAt = testNow.Add(-20 * time.Minute)

	status := EvaluateSla(job, testNow)
	assert.Equal(t, job.CreatedAt.Add(entity.SlotInDefaultSLAMinutes*time.Minute), status.Deadline)
	assert.True(t, status.Overdue)
}

func TestEvaluateSlaAcknowledged(t *testing.T) {
	job := newJob(entity.JobStatusInProgress)
	job.JobType = entity.JobTypeSlotIn
	job.SLATargetMinutes = 15
	job.CreatedAt = testNow.Add(-30 * time.Minute)
	ack := testNow.Add(-20 * time.Minute)
	job.AcknowledgedAt = &ack

	status := EvaluateSla(job, testNow)
	assert.False(t, status.PendingAck)
	assert.True(t, status.Overdue, "overdue is derived from elapsed time regardless of ack")
}

func TestAcceptanceViewExpiry(t *testing.T) {
	job := newJob(entity.JobStatusAssigned)
	job.AcceptanceState = entity.AcceptancePending

	deadline := testNow.Add(10 * time.Minute)
	job.TechnicianResponseDeadline = &deadline
	assert.Equal(t, entity.AcceptancePending, AcceptanceView(job, testNow))

	// 超时只改变展示状态，不隐式取消
	assert.Equal(t, entity.AcceptanceExpired, AcceptanceView(job, testNow.Add(11*time.Minute)))
	assert.Equal(t, entity.JobStatusAssigned, job.Status)

	job.AcceptanceState = entity.AcceptanceAccepted
	assert.Equal(t, entity.AcceptanceAccepted, AcceptanceView(job, testNow.Add(11*time.Minute)))
}

func TestAddBusinessDays(t *testing.T) {
	monday := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Thursday, addBusinessDays(monday, 3).Weekday())

	friday := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)
	// 周五 + 2个工作日 = 跳过周末到周二
	next := addBusinessDays(friday, 2)
	assert.Equal(t, time.Tuesday, next.Weekday())
	assert.Equal(t, 10, next.Day())
}
