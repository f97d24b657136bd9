package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceRoleRank(t *testing.T) {
	assert.Greater(t, WorkspaceRoleRank(WorkspaceRoleOwner), WorkspaceRoleRank(WorkspaceRoleAdmin))
	assert.Greater(t, WorkspaceRoleRank(WorkspaceRoleAdmin), WorkspaceRoleRank(WorkspaceRoleMember))
	assert.Greater(t, WorkspaceRoleRank(WorkspaceRoleMember), WorkspaceRoleRank(WorkspaceRoleViewer))
	assert.Equal(t, -1, WorkspaceRoleRank("garbage"))
}

func TestWorkspaceValidate(t *testing.T) {
	tests := []struct {
		name      string
		workspace Workspace
		wantErr   bool
	}{
		{
			name:      "valid",
			workspace: Workspace{Slug: "acme-team", Name: "Acme Team", OwnerID: 1},
			wantErr:   false,
		},
		{
			name:      "slug too short",
			workspace: Workspace{Slug: "ab", Name: "Acme Team", OwnerID: 1},
			wantErr:   true,
		},
		{
			name:      "missing name",
			workspace: Workspace{Slug: "acme-team", OwnerID: 1},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.workspace.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkspaceMemberIsOwner(t *testing.T) {
	assert.True(t, (&WorkspaceMember{Role: WorkspaceRoleOwner}).IsOwner())
	assert.False(t, (&WorkspaceMember{Role: WorkspaceRoleAdmin}).IsOwner())
}
