package service

import (
	"context"
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPersistEndReadingEvaluatesIndependently(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := &JobService{
		repos:  repos,
		eng:    engine.New(engine.DefaultConfig()),
		logger: zap.NewNop(),
	}
	ctx := context.Background()

	testutil.SeedTestCustomer(t, db, "cust-001", "ACME", "Acme Logistics")
	forklift := testutil.SeedTestForklift(t, db, "fk-001", "FLT-001", "cust-001")

	// 起始读数正常落库
	startAt := time.Now().UTC().Add(-4 * time.Hour)
	require.NoError(t, repos.Forklift.AddReading(ctx, &entity.HourmeterRecord{
		ID:         "rec-start-001",
		ForkliftID: forklift.ID,
		JobID:      "job-001",
		Reading:    1000,
		CapturedAt: startAt,
		ReceivedAt: startAt,
		RecordedBy: "tech-001",
		CreatedAt:  startAt,
	}))

	// 工单起始读数未被标记，完工读数却回退——必须独立校验并标记
	job := &entity.Job{
		ID:               "job-001",
		JobCode:          "JOB-20250602-0001",
		JobType:          entity.JobTypeRepair,
		ForkliftID:       forklift.ID,
		HourmeterFlagged: false,
	}
	actor := engine.Actor{ID: "tech-001", Name: "Tech", Role: entity.RoleTechnician}
	svc.persistEndReading(ctx, job, actor, 950, time.Now().UTC())

	var record entity.HourmeterRecord
	require.NoError(t, db.Where("reading = ?", 950.0).First(&record).Error)
	assert.True(t, record.Flagged)
	assert.Contains(t, []string(record.FlagReasons), entity.FlagLowerThanPrevious)

	var amendment entity.HourmeterAmendment
	require.NoError(t, db.Where("record_id = ?", record.ID).First(&amendment).Error)
	assert.Equal(t, entity.AmendmentStatusPending, amendment.Status)
	assert.Equal(t, 950.0, amendment.OriginalReading)
}
