package engine

import (
	"fmt"
)

// RejectionKind 拒绝类型
type RejectionKind string

const (
	RejectInvalidTransition  RejectionKind = "invalid_transition"
	RejectUnauthorized       RejectionKind = "unauthorized"
	RejectPreconditionFailed RejectionKind = "precondition_failed"
	RejectConflict           RejectionKind = "conflict"
	RejectValidation         RejectionKind = "validation_error"
)

// Rejection 引擎类型化拒绝——所有引擎错误都是该类型，不抛异常不吞错
type Rejection struct {
	Kind   RejectionKind `json:"kind"`
	Action Action        `json:"action"`
	From   string        `json:"from_status,omitempty"`
	Detail string        `json:"detail"`
}

func (r *Rejection) Error() string {
	if r.From != "" {
		return fmt.Sprintf("%s: action %s from status %s: %s", r.Kind, r.Action, r.From, r.Detail)
	}
	return fmt.Sprintf("%s: action %s: %s", r.Kind, r.Action, r.Detail)
}

func reject(kind RejectionKind, action Action, from, detail string) *Rejection {
	return &Rejection{Kind: kind, Action: action, From: from, Detail: detail}
}

func invalidTransition(action Action, from string) *Rejection {
	return reject(RejectInvalidTransition, action, from, fmt.Sprintf("action not allowed from status %s", from))
}

func unauthorized(action Action, detail string) *Rejection {
	return reject(RejectUnauthorized, action, "", detail)
}

func preconditionFailed(action Action, from, detail string) *Rejection {
	return reject(RejectPreconditionFailed, action, from, detail)
}

func validationError(action Action, detail string) *Rejection {
	return reject(RejectValidation, action, "", detail)
}

// Conflict 并发冲突拒绝——由宿主在乐观锁/分布式锁失败时使用
func Conflict(action Action, detail string) *Rejection {
	return reject(RejectConflict, action, "", detail)
}

// Unauthorized 权限拒绝——由宿主在引擎动作之外的操作上使用
func Unauthorized(action Action, detail string) *Rejection {
	return reject(RejectUnauthorized, action, "", detail)
}
