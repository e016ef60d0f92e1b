package service

import (
	"context"
	"testing"

	"github.com/ph0en1x29/FT-sub003/internal/engine"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAmendmentRejectsLowRoles(t *testing.T) {
	svc := &ForkliftService{}
	reading := 1200.0

	for _, role := range []string{entity.RoleTechnician, entity.RoleStoreman, entity.RoleAccountant} {
		actor := engine.Actor{ID: "u-001", Name: "User", Role: role}
		_, err := svc.ResolveAmendment(context.Background(), "amd-001", true, &reading, "reading confirmed on site", actor)
		require.Error(t, err)
		rej, ok := err.(*engine.Rejection)
		require.True(t, ok, "expected *Rejection, got %T", err)
		assert.Equal(t, engine.RejectUnauthorized, rej.Kind, "role %s", role)
		assert.Equal(t, engine.ActionResolveAmendment, rej.Action)
	}
}
