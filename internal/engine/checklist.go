package engine

import (
	"sort"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
)

// 检查清单模板常量
const (
	ChecklistTemplateMinor = "minor_service"
	ChecklistTemplateFull  = "full_service"
)

// ChecklistItem 检查项定义
type ChecklistItem struct {
	Key      string `json:"key"`
	Category string `json:"category"`
	Label    string `json:"label"`
	// Minor 为true时该项属于小保养模板
	Minor bool `json:"minor"`
}

// checklistCatalog 检查项目录——12大类共50项，full模板为全集，minor模板为子集
var checklistCatalog = []ChecklistItem{
	// 发动机
	{Key: "engine_oil_level", Category: "engine", Label: "Engine oil level & condition", Minor: true},
	{Key: "engine_oil_filter", Category: "engine", Label: "Engine oil filter", Minor: true},
	{Key: "engine_coolant", Category: "engine", Label: "Coolant level & leaks", Minor: true},
	{Key: "engine_air_filter", Category: "engine", Label: "Air filter element", Minor: true},
	{Key: "engine_fuel_system", Category: "engine", Label: "Fuel lines & filter"},
	{Key: "engine_belts", Category: "engine", Label: "Drive belts tension & wear"},
	// 传动
	{Key: "trans_fluid", Category: "transmission", Label: "Transmission fluid level", Minor: true},
	{Key: "trans_leaks", Category: "transmission", Label: "Transmission leaks"},
	{Key: "trans_inching", Category: "transmission", Label: "Inching pedal operation"},
	// 液压
	{Key: "hyd_oil_level", Category: "hydraulic", Label: "Hydraulic oil level", Minor: true},
	{Key: "hyd_hoses", Category: "hydraulic", Label: "Hoses & fittings leaks", Minor: true},
	{Key: "hyd_cylinders", Category: "hydraulic", Label: "Lift/tilt cylinder condition"},
	{Key: "hyd_control_valve", Category: "hydraulic", Label: "Control valve operation"},
	{Key: "hyd_pump_noise", Category: "hydraulic", Label: "Pump noise check"},
	// 刹车
	{Key: "brake_pedal", Category: "brakes", Label: "Service brake pedal travel", Minor: true},
	{Key: "brake_parking", Category: "brakes", Label: "Parking brake holding", Minor: true},
	{Key: "brake_fluid", Category: "brakes", Label: "Brake fluid level", Minor: true},
	{Key: "brake_lines", Category: "brakes", Label: "Brake lines & leaks"},
	// 转向
	{Key: "steer_play", Category: "steering", Label: "Steering wheel free play", Minor: true},
	{Key: "steer_cylinder", Category: "steering", Label: "Steering cylinder & linkage"},
	{Key: "steer_knuckle", Category: "steering", Label: "Knuckle & kingpin wear"},
	// 门架与链条
	{Key: "mast_chains", Category: "mast", Label: "Lift chain tension & lubrication", Minor: true},
	{Key: "mast_rollers", Category: "mast", Label: "Mast rollers & rails", Minor: true},
	{Key: "mast_carriage", Category: "mast", Label: "Carriage & side-shift condition"},
	{Key: "mast_backrest", Category: "mast", Label: "Load backrest security"},
	// 货叉
	{Key: "fork_wear", Category: "forks", Label: "Fork heel wear & cracks", Minor: true},
	{Key: "fork_lock", Category: "forks", Label: "Fork positioning locks"},
	{Key: "fork_attachment", Category: "forks", Label: "Attachment mounting & operation"},
	// 轮胎
	{Key: "tyre_front", Category: "tyres", Label: "Front tyre wear & damage", Minor: true},
	{Key: "tyre_rear", Category: "tyres", Label: "Rear tyre wear & damage", Minor: true},
	{Key: "tyre_nuts", Category: "tyres", Label: "Wheel nut torque", Minor: true},
	{Key: "tyre_rims", Category: "tyres", Label: "Rim condition"},
	// 电气
	{Key: "elec_horn", Category: "electrical", Label: "Horn operation", Minor: true},
	{Key: "elec_lights", Category: "electrical", Label: "Work/warning lights", Minor: true},
	{Key: "elec_gauges", Category: "electrical", Label: "Gauges & hourmeter function"},
	{Key: "elec_wiring", Category: "electrical", Label: "Wiring harness condition"},
	{Key: "elec_starter", Category: "electrical", Label: "Starter & charging system"},
	// 电池
	{Key: "battery_terminals", Category: "battery", Label: "Battery terminals & cables", Minor: true},
	{Key: "battery_electrolyte", Category: "battery", Label: "Electrolyte level"},
	{Key: "battery_mounting", Category: "battery", Label: "Battery restraint & tray"},
	// 安全装置
	{Key: "safety_seatbelt", Category: "safety", Label: "Seat belt & switch", Minor: true},
	{Key: "safety_ohg", Category: "safety", Label: "Overhead guard integrity", Minor: true},
	{Key: "safety_reverse", Category: "safety", Label: "Reverse alarm & beacon", Minor: true},
	{Key: "safety_decals", Category: "safety", Label: "Capacity plate & decals"},
	{Key: "safety_deadman", Category: "safety", Label: "Operator presence system"},
	// 整机与驾驶室
	{Key: "cabin_seat", Category: "general", Label: "Seat condition & adjustment"},
	{Key: "cabin_pedals", Category: "general", Label: "Pedal pads & return"},
	{Key: "cabin_mirrors", Category: "general", Label: "Mirrors & visibility"},
	{Key: "general_greasing", Category: "general", Label: "Grease all points", Minor: true},
	{Key: "general_leaks", Category: "general", Label: "Overall leak inspection", Minor: true},
}

// ChecklistResult 检查清单完整性评估结果
type ChecklistResult struct {
	CheckedCount   int      `json:"checked_count"`
	TotalMandatory int      `json:"total_mandatory"`
	MissingKeys    []string `json:"missing_keys"`
}

// Complete 是否所有必检项均已填写
func (r ChecklistResult) Complete() bool {
	return len(r.MissingKeys) == 0
}

// MandatoryKeys 返回指定模板的必检项key列表
func MandatoryKeys(template string) []string {
	keys := make([]string, 0, len(checklistCatalog))
	for _, item := range checklistCatalog {
		if template == ChecklistTemplateMinor && !item.Minor {
			continue
		}
		keys = append(keys, item.Key)
	}
	return keys
}

// CatalogItems 返回指定模板的检查项定义，供前端渲染
func CatalogItems(template string) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(checklistCatalog))
	for _, item := range checklistCatalog {
		if template == ChecklistTemplateMinor && !item.Minor {
			continue
		}
		items = append(items, item)
	}
	return items
}

// EvaluateChecklist 评估检查清单完整性——纯函数，不修改输入
func EvaluateChecklist(checklist entity.ChecklistMap, mandatory []string) ChecklistResult {
	result := ChecklistResult{TotalMandatory: len(mandatory)}
	for _, key := range mandatory {
		state, ok := checklist[key]
		if !ok || state == "" || state == entity.CheckResultUnset {
			result.MissingKeys = append(result.MissingKeys, key)
			continue
		}
		result.CheckedCount++
	}
	sort.Strings(result.MissingKeys)
	return result
}

// CheckAll 整单勾选——全部必检项置为ok，返回新map，单项仍可在完成前改回
func CheckAll(checklist entity.ChecklistMap, mandatory []string) entity.ChecklistMap {
	next := make(entity.ChecklistMap, len(mandatory)+len(checklist))
	for k, v := range checklist {
		next[k] = v
	}
	for _, key := range mandatory {
		next[key] = entity.CheckResultOK
	}
	return next
}
