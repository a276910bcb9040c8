package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" tribunal ")
	require.NoError(t, err)
	assert.Equal(t, RoleTribunal, role)

	_, err = ParseRole("ADMIN")
	assert.Error(t, err)
}

func TestRoleJSONRejectsUnknownValues(t *testing.T) {
	var claims struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"ESTUDIANTE"}`), &claims))
	assert.Equal(t, RoleEstudiante, claims.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"SUPERADMIN"}`), &claims))

	out, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleSecretario})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"SECRETARIO"}`, string(out))

	_, err = json.Marshal(struct{ Role Role }{Role(42)})
	assert.Error(t, err)
}

func TestRoleScanAndValue(t *testing.T) {
	var r Role
	require.NoError(t, r.Scan([]byte("DIRECTOR")))
	assert.Equal(t, RoleDirector, r)
	assert.True(t, r.IsCoordinator())

	v, err := RoleEstudiante.Value()
	require.NoError(t, err)
	assert.Equal(t, "ESTUDIANTE", v)

	assert.Error(t, r.Scan(12))
	_, err = Role(0).Value()
	assert.Error(t, err)
}
