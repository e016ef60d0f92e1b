package engine

import (
	"testing"
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func TestEvaluateHourmeterLowerThanPrevious(t *testing.T) {
	t1 := testNow.Add(-24 * time.Hour)
	result := EvaluateHourmeter(HourmeterInput{
		NewReading:      90,
		PreviousReading: f64(100),
		PreviousAt:      tp(t1),
		CapturedAt:      testNow,
		ReceivedAt:      testNow,
	}, DefaultHourmeterConfig())

	assert.True(t, result.Flagged)
	assert.Contains(t, result.Reasons, entity.FlagLowerThanPrevious)
}

func TestEvaluateHourmeterExcessiveJump(t *testing.T) {
	// 10小时内表读数涨50，超过默认每小时1.0的上限
	t1 := testNow.Add(-10 * time.Hour)
	result := EvaluateHourmeter(HourmeterInput{
		NewReading:      150,
		PreviousReading: f64(100),
		PreviousAt:      tp(t1),
		CapturedAt:      testNow,
		ReceivedAt:      testNow,
	}, DefaultHourmeterConfig())

	assert.True(t, result.Flagged)
	assert.Contains(t, result.Reasons, entity.FlagExcessiveJump)
	assert.NotContains(t, result.Reasons, entity.FlagLowerThanPrevious)
}

func TestEvaluateHourmeterPatternMismatch(t *testing.T) {
	// 日均2小时，7天预期14小时，偏差倍数3 → 阈值42，实际涨50
	t1 := testNow.Add(-7 * 24 * time.Hour)
	result := EvaluateHourmeter(HourmeterInput{
		NewReading:         150,
		PreviousReading:    f64(100),
		PreviousAt:         tp(t1),
		CapturedAt:         testNow,
		ReceivedAt:         testNow,
		AvgDailyUsageHours: 2,
	}, DefaultHourmeterConfig())

	assert.True(t, result.Flagged)
	assert.Contains(t, result.Reasons, entity.FlagPatternMismatch)
	assert.NotContains(t, result.Reasons, entity.FlagExcessiveJump)
}

func TestEvaluateHourmeterTimestampMismatch(t *testing.T) {
	result := EvaluateHourmeter(HourmeterInput{
		NewReading: 100,
		CapturedAt: testNow.Add(-10 * time.Minute),
		ReceivedAt: testNow,
	}, DefaultHourmeterConfig())

	assert.True(t, result.Flagged)
	assert.Equal(t, []string{entity.FlagTimestampMismatch}, result.Reasons)
}

func TestEvaluateHourmeterReasonsAccumulate(t *testing.T) {
	// 读数回退 + 设备时间漂移，两个原因同时成立，互不短路
	t1 := testNow.Add(-24 * time.Hour)
	result := EvaluateHourmeter(HourmeterInput{
		NewReading:      90,
		PreviousReading: f64(100),
		PreviousAt:      tp(t1),
		CapturedAt:      testNow.Add(-20 * time.Minute),
		ReceivedAt:      testNow,
		ManualFlag:      true,
	}, DefaultHourmeterConfig())

	assert.True(t, result.Flagged)
	assert.Contains(t, result.Reasons, entity.FlagLowerThanPrevious)
	assert.Contains(t, result.Reasons, entity.FlagTimestampMismatch)
	assert.Contains(t, result.Reasons, entity.FlagManual)
	assert.Len(t, result.Reasons, 3)
}

func TestEvaluateHourmeterCleanReading(t *testing.T) {
	t1 := testNow.Add(-5 * 24 * time.Hour)
	result := EvaluateHourmeter(HourmeterInput{
		NewReading:         110,
		PreviousReading:    f64(100),
		PreviousAt:         tp(t1),
		CapturedAt:         testNow,
		ReceivedAt:         testNow.Add(time.Minute),
		AvgDailyUsageHours: 2,
	}, DefaultHourmeterConfig())

	assert.False(t, result.Flagged)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateHourmeterNoHistory(t *testing.T) {
	// 首次读数没有历史可比，仅时间戳规则适用
	result := EvaluateHourmeter(HourmeterInput{
		NewReading: 1234,
		CapturedAt: testNow,
		ReceivedAt: testNow,
	}, DefaultHourmeterConfig())

	assert.False(t, result.Flagged)
}
