package bot

import (
	"strings"
	"testing"
	"time"

	"eta-moderator/internal/analytics"
	"eta-moderator/internal/config"
	"eta-moderator/internal/eligibility"
	"eta-moderator/internal/history"
	"eta-moderator/internal/moderation"
)

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		name string
		out  moderation.Outcome
		want string
	}{
		{name: "self", out: moderation.Outcome{Status: moderation.StatusDenied, Reason: eligibility.ReasonSelfTarget}, want: "yourself"},
		{name: "bot", out: moderation.Outcome{Status: moderation.StatusDenied, Reason: eligibility.ReasonBotTarget}, want: "Bots"},
		{name: "target", out: moderation.Outcome{Status: moderation.StatusDenied, Reason: eligibility.ReasonTargetNotEligible}, want: "target role"},
		{name: "executor", out: moderation.Outcome{Status: moderation.StatusDenied, Reason: eligibility.ReasonExecutorIneligible}, want: "cannot use"},
		{name: "permission", out: moderation.Outcome{Status: moderation.StatusDenied, Reason: eligibility.ReasonInsufficientBotPermission}, want: "lacks permission"},
		{name: "cooldown", out: moderation.Outcome{Status: moderation.StatusCooldownActive, CooldownLeft: 42}, want: "42 more seconds"},
		{name: "action failed", out: moderation.Outcome{Status: moderation.StatusActionFailed}, want: "could not be applied"},
		{name: "persist failed", out: moderation.Outcome{Status: moderation.StatusPersistFailed}, want: "could not be recorded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeMessage(tt.out); !strings.Contains(got, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestActionFailureHidesCause(t *testing.T) {
	out := moderation.Outcome{Status: moderation.StatusActionFailed, Err: errTest("HTTP 403 Forbidden secret detail")}
	if strings.Contains(outcomeMessage(out), "403") {
		t.Fatalf("platform error leaked to chat")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestUsageMessageUsesPrefix(t *testing.T) {
	if got := usageMessage("?to"); !strings.Contains(got, "`?to @user`") {
		t.Fatalf("unexpected usage: %q", got)
	}
}

func TestHelpEmbedUsesSettings(t *testing.T) {
	cfg := config.DefaultSettings()
	cfg.Prefix = "!x"
	cfg.MinTimeout = 5
	cfg.MaxTimeout = 7
	embed := helpEmbed(cfg)
	if len(embed.Fields) != 5 {
		t.Fatalf("expected 5 help entries, got %d", len(embed.Fields))
	}
	if embed.Fields[0].Name != "!x @user" || !strings.Contains(embed.Fields[0].Value, "5 to 7") {
		t.Fatalf("unexpected first entry: %+v", embed.Fields[0])
	}
}

func TestStatsEmbed(t *testing.T) {
	embed := statsEmbed(analytics.UserStats{
		Executed:    3,
		TargetCount: 2,
		TopTargets:  []analytics.TargetCount{{UserID: "b", Count: 2}, {UserID: "c", Count: 1}},
	})
	if embed.Fields[0].Value != "3" || embed.Fields[1].Value != "2" {
		t.Fatalf("unexpected counts: %+v %+v", embed.Fields[0], embed.Fields[1])
	}
	if embed.Fields[2].Value != "<@b>: 2\n<@c>: 1" {
		t.Fatalf("unexpected top targets: %q", embed.Fields[2].Value)
	}
}

func TestRankingEmbedLabels(t *testing.T) {
	entries := []analytics.RankEntry{{UserID: "a", Executed: 5}, {UserID: "b", Executed: 4}, {UserID: "c", Executed: 3}, {UserID: "d", Executed: 1}}
	lines := strings.Split(rankingEmbed(entries).Description, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "🥇 <@a>: 5" || lines[3] != "4. <@d>: 1" {
		t.Fatalf("unexpected ranking lines: %q", lines)
	}
}

func TestHistoryEmbed(t *testing.T) {
	records := []history.TimeoutRecord{{ExecutorID: "a", TargetID: "b", Duration: 12, Timestamp: time.Unix(1700000000, 0)}}
	if got := historyEmbed(records).Description; got != "<t:1700000000:f> <@a> → <@b> (12s)" {
		t.Fatalf("unexpected history line: %q", got)
	}
}

func TestInfoEmbed(t *testing.T) {
	cfg := config.DefaultSettings()
	embed := infoEmbed(cfg, analytics.Summary{TotalTimeouts: 9, GuildTimeouts: 4})
	if embed.Fields[0].Value != "10 to 90 seconds" || embed.Fields[1].Value != "60 seconds" {
		t.Fatalf("unexpected settings fields: %+v %+v", embed.Fields[0], embed.Fields[1])
	}
	if embed.Fields[2].Value != "not set" {
		t.Fatalf("expected placeholder role, got %q", embed.Fields[2].Value)
	}
	if embed.Fields[3].Value != "4" || embed.Fields[4].Value != "9" {
		t.Fatalf("unexpected totals: %+v %+v", embed.Fields[3], embed.Fields[4])
	}
}

func TestSuccessEmbed(t *testing.T) {
	embed := successEmbed("b", "a", 30, 60)
	if embed.Fields[0].Value != "<@b>" || embed.Fields[1].Value != "30 seconds" || embed.Fields[2].Value != "<@a>" {
		t.Fatalf("unexpected fields: %+v", embed.Fields)
	}
	if !strings.Contains(embed.Footer.Text, "60 seconds") {
		t.Fatalf("unexpected footer: %q", embed.Footer.Text)
	}
}
