package engine

// EffectKind 副作用类型
type EffectKind string

const (
	EffectNotify EffectKind = "notify"
	EffectAudit  EffectKind = "audit"
	EffectExport EffectKind = "export"
)

// 通知接收方
const (
	RecipientTechnician = "technician"
	RecipientAdmin      = "admin"
	RecipientSupervisor = "supervisor"
	RecipientStoreman   = "storeman"
	RecipientAccountant = "accountant"
)

// SideEffect 副作用请求——引擎只声明，宿主负责异步执行，引擎正确性不依赖其完成
type SideEffect struct {
	Kind      EffectKind             `json:"kind"`
	Recipient string                 `json:"recipient,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

func notifyEffect(recipient, message string, meta map[string]interface{}) SideEffect {
	return SideEffect{Kind: EffectNotify, Recipient: recipient, Message: message, Meta: meta}
}

func auditEffect(action Action, from, to, actorID, actorRole string, detail map[string]interface{}) SideEffect {
	meta := map[string]interface{}{
		"action":      string(action),
		"from_status": from,
		"to_status":   to,
		"actor_id":    actorID,
		"actor_role":  actorRole,
	}
	for k, v := range detail {
		meta[k] = v
	}
	return SideEffect{Kind: EffectAudit, Meta: meta}
}

func exportEffect(jobID string) SideEffect {
	return SideEffect{Kind: EffectExport, Meta: map[string]interface{}{"job_id": jobID}}
}
