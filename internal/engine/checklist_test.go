package engine

import (
	"testing"

	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistCatalogShape(t *testing.T) {
	full := MandatoryKeys(ChecklistTemplateFull)
	assert.Len(t, full, 50)

	minor := MandatoryKeys(ChecklistTemplateMinor)
	assert.Less(t, len(minor), len(full))
	assert.NotEmpty(t, minor)

	categories := map[string]bool{}
	for _, item := range CatalogItems(ChecklistTemplateFull) {
		categories[item.Category] = true
	}
	assert.Len(t, categories, 12)
}

func TestEvaluateChecklistEmpty(t *testing.T) {
	mandatory := MandatoryKeys(ChecklistTemplateFull)
	result := EvaluateChecklist(entity.ChecklistMap{}, mandatory)

	assert.Equal(t, 0, result.CheckedCount)
	assert.Equal(t, 50, result.TotalMandatory)
	assert.Len(t, result.MissingKeys, 50)
	assert.False(t, result.Complete())
}

func TestEvaluateChecklistAllSet(t *testing.T) {
	mandatory := MandatoryKeys(ChecklistTemplateFull)
	checklist := entity.ChecklistMap{}
	for _, key := range mandatory {
		checklist[key] = entity.CheckResultOK
	}
	result := EvaluateChecklist(checklist, mandatory)

	assert.Equal(t, 50, result.CheckedCount)
	assert.Empty(t, result.MissingKeys)
	assert.True(t, result.Complete())
}

func TestEvaluateChecklistNotOkStillCounts(t *testing.T) {
	// not_ok是有效填写结果，缺的是未填写项
	mandatory := []string{"engine_oil_level", "brake_pedal", "safety_seatbelt"}
	result := EvaluateChecklist(entity.ChecklistMap{
		"engine_oil_level": entity.CheckResultNotOK,
		"brake_pedal":      entity.CheckResultOK,
		"safety_seatbelt":  entity.CheckResultUnset,
	}, mandatory)

	assert.Equal(t, 2, result.CheckedCount)
	assert.Equal(t, []string{"safety_seatbelt"}, result.MissingKeys)
}

func TestCheckAllRemainsOverridable(t *testing.T) {
	mandatory := MandatoryKeys(ChecklistTemplateFull)
	checked := CheckAll(entity.ChecklistMap{}, mandatory)
	require.True(t, EvaluateChecklist(checked, mandatory).Complete())

	// 整单勾选后单项仍可改回
	checked["brake_pedal"] = entity.CheckResultNotOK
	result := EvaluateChecklist(checked, mandatory)
	assert.True(t, result.Complete())
	assert.Equal(t, entity.CheckResultNotOK, checked["brake_pedal"])
}

func TestCheckAllDoesNotMutateInput(t *testing.T) {
	original := entity.ChecklistMap{"engine_oil_level": entity.CheckResultNotOK}
	CheckAll(original, MandatoryKeys(ChecklistTemplateFull))
	assert.Equal(t, entity.CheckResultNotOK, original["engine_oil_level"])

	// 输入map未被扩充
	assert.Len(t, original, 1)
}
