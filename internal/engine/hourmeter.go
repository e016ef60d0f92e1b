package engine

import (
	"time"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// HourmeterConfig 小时表校验阈值配置
// 业务规则未定死具体数值，必须走配置并提供保守默认值
type HourmeterConfig struct {
	// MaxHourlyRate 两次读数间每流逝1小时允许增长的最大表读数
	MaxHourlyRate float64 `mapstructure:"max_hourly_rate"`
	// PatternDeviationMultiple 相对日均用量的允许偏差倍数
	PatternDeviationMultiple float64 `mapstructure:"pattern_deviation_multiple"`
	// TimestampTolerance 设备采集时间与服务器接收时间的允许偏差
	TimestampTolerance time.Duration `mapstructure:"timestamp_tolerance"`
}

// DefaultHourmeterConfig 默认阈值
func DefaultHourmeterConfig() HourmeterConfig {
	return HourmeterConfig{
		MaxHourlyRate:            1.0,
		PatternDeviationMultiple: 3.0,
		TimestampTolerance:       5 * time.Minute,
	}
}

// HourmeterInput 校验输入
type HourmeterInput struct {
	NewReading      float64
	PreviousReading *float64
	PreviousAt      *time.Time
	// CapturedAt 设备上报的采集时间，ReceivedAt 服务器接收时间
	CapturedAt time.Time
	ReceivedAt time.Time
	// AvgDailyUsageHours 资产的滚动日均使用小时数，0表示无历史
	AvgDailyUsageHours float64
	// ManualFlag 审核人直接标记
	ManualFlag bool
}

// HourmeterResult 校验结果——异常不阻塞流程，只产生修正请求
type HourmeterResult struct {
	Flagged bool     `json:"flagged"`
	Reasons []string `json:"reasons"`
}

// EvaluateHourmeter 校验新读数——纯函数，各规则独立评估，原因累加不短路
func EvaluateHourmeter(in HourmeterInput, cfg HourmeterConfig) HourmeterResult {
	var reasons []string

	if in.PreviousReading != nil {
		prev := *in.PreviousReading
		if in.NewReading < prev {
			reasons = append(reasons, entity.FlagLowerThanPrevious)
		}

		if in.PreviousAt != nil && in.NewReading > prev {
			elapsed := in.CapturedAt.Sub(*in.PreviousAt).Hours()
			if elapsed > 0 && (in.NewReading-prev)/elapsed > cfg.MaxHourlyRate {
				reasons = append(reasons, entity.FlagExcessiveJump)
			}
		}

		if in.PreviousAt != nil && in.AvgDailyUsageHours > 0 {
			days := in.CapturedAt.Sub(*in.PreviousAt).Hours() / 24
			if days > 0 {
				expected := in.AvgDailyUsageHours * days
				delta := in.NewReading - prev
				if delta < 0 {
					delta = -delta
				}
				if delta > expected*cfg.PatternDeviationMultiple {
					reasons = append(reasons, entity.FlagPatternMismatch)
				}
			}
		}
	}

	drift := in.ReceivedAt.Sub(in.CapturedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > cfg.TimestampTolerance {
		reasons = append(reasons, entity.FlagTimestampMismatch)
	}

	if in.ManualFlag {
		reasons = append(reasons, entity.FlagManual)
	}

	return HourmeterResult{Flagged: len(reasons) > 0, Reasons: reasons}
}

// AmendmentMinJustificationLen 修正单理由最小长度
const AmendmentMinJustificationLen = 10
