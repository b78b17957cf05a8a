package authz

import (
	"testing"

	"github.com/hitoshi/pinmap/internal/model"
)

func TestCanMutate_Owner_Allowed(t *testing.T) {
	p := NewPolicy("", "admin")

	identity := &model.Identity{ExternalID: "user-a", DisplayName: "alice"}
	if !p.CanMutate("user-a", identity) {
		t.Error("owner should be allowed to mutate")
	}
}

func TestCanMutate_NonOwnerNonAdmin_Denied(t *testing.T) {
	p := NewPolicy("", "admin")

	identity := &model.Identity{ExternalID: "user-b", DisplayName: "bob"}
	if p.CanMutate("user-a", identity) {
		t.Error("non-owner non-admin should be denied")
	}
}

func TestCanMutate_AdminByUsername_Allowed(t *testing.T) {
	p := NewPolicy("", "admin")

	identity := &model.Identity{ExternalID: "user-z", DisplayName: "admin"}
	if !p.CanMutate("user-a", identity) {
		t.Error("admin should be allowed to mutate any record")
	}
}

func TestCanMutate_AdminUsernameCaseInsensitive(t *testing.T) {
	p := NewPolicy("", "Admin")

	for _, name := range []string{"admin", "ADMIN", "aDmIn"} {
		identity := &model.Identity{ExternalID: "user-z", DisplayName: name}
		if !p.CanMutate("user-a", identity) {
			t.Errorf("display name %q should match admin case-insensitively", name)
		}
	}
}

func TestCanMutate_AdminByUserID_Allowed(t *testing.T) {
	p := NewPolicy("999", "")

	identity := &model.Identity{ExternalID: "999", DisplayName: "whoever"}
	if !p.CanMutate("user-a", identity) {
		t.Error("admin by user ID should be allowed")
	}
}

func TestCanMutate_NilIdentity_Denied(t *testing.T) {
	p := NewPolicy("999", "admin")

	if p.CanMutate("user-a", nil) {
		t.Error("nil identity should be denied")
	}
}

func TestIsAdmin_EmptyConfig_AlwaysFalse(t *testing.T) {
	p := NewPolicy("", "")

	identity := &model.Identity{ExternalID: "user-a", DisplayName: ""}
	if p.IsAdmin(identity) {
		t.Error("empty admin config should never match")
	}
}
