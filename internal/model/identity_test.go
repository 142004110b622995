package model

import "testing"

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in, want Role
	}{
		{RoleUser, RoleUser},
		{RoleCompany, RoleUser},
		{RoleCraftsman, RoleCraftsman},
		{RoleWorker, RoleCraftsman},
		{RoleAdmin, RoleAdmin},
		{Role("mystery"), Role("mystery")},
	}
	for _, tc := range cases {
		if got := NormalizeRole(tc.in); got != tc.want {
			t.Fatalf("NormalizeRole(%s): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestIdentityMatches(t *testing.T) {
	company := Identity{Role: RoleCompany, UserID: 2}
	user := Identity{Role: RoleUser, UserID: 2}
	craftsman := Identity{Role: RoleCraftsman, UserID: 2}

	if !company.Matches(user) {
		t.Fatalf("expected company and user with the same ID to match")
	}
	if company.Matches(craftsman) {
		t.Fatalf("expected different role families not to match")
	}
	if user.Matches(Identity{Role: RoleUser, UserID: 3}) {
		t.Fatalf("expected different user IDs not to match")
	}
}

func TestChannelAliases(t *testing.T) {
	got := Identity{Role: RoleWorker, UserID: 7}.ChannelAliases()
	if len(got) != 2 || got[0] != RoleCraftsman || got[1] != RoleWorker {
		t.Fatalf("unexpected aliases for worker: %v", got)
	}

	got = Identity{Role: RoleAdmin, UserID: 7}.ChannelAliases()
	if len(got) != 1 || got[0] != RoleAdmin {
		t.Fatalf("unexpected aliases for admin: %v", got)
	}
}
