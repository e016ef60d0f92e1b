package engine

import (
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// Actor 执行转换的操作人
type Actor struct {
	ID   string
	Name string
	Role string
}

// 角色能力表——每个转换只查一次，不在各处重复判断角色字符串
var roleCapabilities = map[string]map[Action]bool{
	entity.RoleAdmin: {
		ActionAssign:           true,
		ActionStart:            true,
		ActionRecordHourmeter:  true,
		ActionContinueTomorrow: true,
		ActionResume:           true,
		ActionDeferComplete:    true,
		ActionDispute:          true,
		ActionResolveDispute:   true,
		ActionComplete:         true,
		ActionConfirmParts:     true,
		ActionConfirmJob:       true,
		ActionFinalize:         true,
		ActionCancel:           true,
		ActionAcknowledge:      true,
	},
	entity.RoleSupervisor: {
		ActionAssign:           true,
		ActionStart:            true,
		ActionRecordHourmeter:  true,
		ActionContinueTomorrow: true,
		ActionResume:           true,
		ActionDeferComplete:    true,
		ActionResolveDispute:   true,
		ActionComplete:         true,
		ActionConfirmJob:       true,
		ActionFinalize:         true,
		ActionCancel:           true,
		ActionAcknowledge:      true,
	},
	entity.RoleTechnician: {
		ActionAccept:           true,
		ActionReject:           true,
		ActionStart:            true,
		ActionRecordHourmeter:  true,
		ActionContinueTomorrow: true,
		ActionResume:           true,
		ActionDeferComplete:    true,
		ActionComplete:         true,
	},
	entity.RoleStoreman: {
		ActionConfirmParts: true,
	},
	entity.RoleAccountant: {
		ActionFinalize: true,
	},
	// 系统角色——定时扫描任务使用
	RoleSystem: {
		ActionAckExpire: true,
		ActionEscalate:  true,
		ActionDispute:   true,
	},
}

// RoleSystem 系统内部角色，仅供定时扫描等宿主任务使用
const RoleSystem = "system"

// Allowed 判断角色是否具备执行指定动作的能力
func Allowed(role string, action Action) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	return caps[action]
}

func isElevated(role string) bool {
	return role == entity.RoleAdmin || role == entity.RoleSupervisor
}
