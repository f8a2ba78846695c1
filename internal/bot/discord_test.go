package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestGuildPermissions(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "g1", Permissions: discordgo.PermissionSendMessages},
		{ID: "mod", Permissions: discordgo.PermissionModerateMembers},
		{ID: "admin", Permissions: discordgo.PermissionAdministrator},
	}

	tests := []struct {
		name   string
		member *discordgo.Member
		want   int64
	}{
		{name: "nil member", member: nil, want: 0},
		{name: "everyone only", member: &discordgo.Member{User: &discordgo.User{ID: "u"}}, want: discordgo.PermissionSendMessages},
		{name: "moderator", member: &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"mod", "missing"}}, want: discordgo.PermissionSendMessages | discordgo.PermissionModerateMembers},
		{name: "administrator", member: &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"admin"}}, want: discordgo.PermissionAll},
		{name: "owner", member: &discordgo.Member{User: &discordgo.User{ID: "owner"}}, want: discordgo.PermissionAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guildPermissions("g1", "owner", roles, tt.member); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEligibilityMember(t *testing.T) {
	author := &discordgo.User{ID: "a"}
	partial := &discordgo.Member{Roles: []string{"r1"}}
	m := eligibilityMember(author, partial)
	if m.ID != "a" || m.Bot || len(m.Roles) != 1 || m.Roles[0] != "r1" {
		t.Fatalf("unexpected member: %+v", m)
	}

	full := &discordgo.Member{User: &discordgo.User{ID: "b", Bot: true}}
	m = eligibilityMember(nil, full)
	if m.ID != "b" || !m.Bot || len(m.Roles) != 0 {
		t.Fatalf("unexpected member: %+v", m)
	}

	src := &discordgo.Member{Roles: []string{"r1"}}
	m = eligibilityMember(author, src)
	src.Roles[0] = "changed"
	if m.Roles[0] != "r1" {
		t.Fatalf("roles not copied")
	}
}

func TestMentionIDs(t *testing.T) {
	ids := mentionIDs([]*discordgo.User{{ID: "1"}, nil, {ID: "2"}})
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
