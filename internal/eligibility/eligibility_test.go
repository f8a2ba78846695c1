package eligibility

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

const targetRole = "r-target"

func baseRequest() Request {
	return Request{
		Executor:       Member{ID: "a", Roles: []string{"r-other"}},
		Target:         Member{ID: "b", Roles: []string{targetRole}},
		BotPermissions: discordgo.PermissionModerateMembers,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   Reason
	}{
		{name: "allowed", mutate: func(*Request) {}, want: ReasonNone},
		{name: "admin bot", mutate: func(r *Request) { r.BotPermissions = discordgo.PermissionAdministrator }, want: ReasonNone},
		{name: "self target", mutate: func(r *Request) { r.Target.ID = "a" }, want: ReasonSelfTarget},
		{name: "bot target", mutate: func(r *Request) { r.Target.Bot = true }, want: ReasonBotTarget},
		{name: "target lacks role", mutate: func(r *Request) { r.Target.Roles = nil }, want: ReasonTargetNotEligible},
		{name: "executor holds role", mutate: func(r *Request) { r.Executor.Roles = []string{targetRole} }, want: ReasonExecutorIneligible},
		{name: "bot lacks permission", mutate: func(r *Request) { r.BotPermissions = discordgo.PermissionSendMessages }, want: ReasonInsufficientBotPermission},
		{
			name: "self target wins over everything",
			mutate: func(r *Request) {
				r.Target = Member{ID: "a", Bot: true}
				r.Executor.Roles = []string{targetRole}
				r.BotPermissions = 0
			},
			want: ReasonSelfTarget,
		},
		{
			name: "bot target before role check",
			mutate: func(r *Request) {
				r.Target.Bot = true
				r.Target.Roles = nil
			},
			want: ReasonBotTarget,
		},
		{
			name: "target role before executor role",
			mutate: func(r *Request) {
				r.Target.Roles = nil
				r.Executor.Roles = []string{targetRole}
			},
			want: ReasonTargetNotEligible,
		},
		{
			name: "executor role before bot permission",
			mutate: func(r *Request) {
				r.Executor.Roles = []string{targetRole}
				r.BotPermissions = 0
			},
			want: ReasonExecutorIneligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			got := Evaluate(req, targetRole)
			if got.Reason != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Reason)
			}
			if got.Allowed != (tt.want == ReasonNone) {
				t.Fatalf("allowed=%t does not match reason %q", got.Allowed, got.Reason)
			}
			if again := Evaluate(req, targetRole); again != got {
				t.Fatalf("evaluate is not deterministic")
			}
		})
	}
}

func TestEmptyTargetRoleMatchesNobody(t *testing.T) {
	req := baseRequest()
	req.Target.Roles = []string{""}
	if got := Evaluate(req, ""); got.Reason != ReasonTargetNotEligible {
		t.Fatalf("expected target_not_eligible, got %q", got.Reason)
	}
}
