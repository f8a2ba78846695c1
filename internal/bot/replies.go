package bot

import (
	"fmt"
	"strings"
	"time"

	"eta-moderator/internal/analytics"
	"eta-moderator/internal/config"
	"eta-moderator/internal/eligibility"
	"eta-moderator/internal/history"
	"eta-moderator/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

const (
	colorBlurple = 0x5865F2
	colorGreen   = 0x57F287
	colorYellow  = 0xFEE75C
	colorFuchsia = 0xEB459E
)

const (
	msgNoStats        = "📊 You have not executed any timeouts yet."
	msgNoRanking      = "📊 No ranking data yet."
	msgNoHistory      = "📜 No timeout history yet."
	msgMemberNotFound = "❌ That user could not be found in this server."
	msgActionFailed   = "❌ The timeout could not be applied. Check the bot's permissions."
	msgPersistFailed  = "⚠️ The timeout was applied but could not be recorded. Please notify an administrator."
)

var denialMessages = map[eligibility.Reason]string{
	eligibility.ReasonSelfTarget:                "❌ You cannot time yourself out.",
	eligibility.ReasonBotTarget:                 "❌ Bots cannot be timed out.",
	eligibility.ReasonTargetNotEligible:         "❌ That user does not have the target role.",
	eligibility.ReasonExecutorIneligible:        "❌ Members with the target role cannot use this command.",
	eligibility.ReasonInsufficientBotPermission: "❌ The bot lacks permission to time out members.",
}

func usageMessage(prefix string) string {
	return fmt.Sprintf("❌ Usage: `%s @user`", prefix)
}

// outcomeMessage renders every non-success outcome of a timeout request.
func outcomeMessage(out moderation.Outcome) string {
	switch out.Status {
	case moderation.StatusDenied:
		if msg, ok := denialMessages[out.Reason]; ok {
			return msg
		}
		return "❌ This timeout is not allowed."
	case moderation.StatusCooldownActive:
		return fmt.Sprintf("⏳ Cooldown active. Please wait %d more seconds.", out.CooldownLeft)
	case moderation.StatusPersistFailed:
		return msgPersistFailed
	default:
		return msgActionFailed
	}
}

func helpEmbed(cfg config.Settings) *discordgo.MessageEmbed {
	p := cfg.Prefix
	return &discordgo.MessageEmbed{
		Title:       "📚 ETA Bot help",
		Description: "Aliases: ヘルプ, 統計, ランキング, 履歴, 情報",
		Color:       colorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: p + " @user", Value: fmt.Sprintf("Time out the user for a random %d to %d seconds.", cfg.MinTimeout, cfg.MaxTimeout)},
			{Name: p + " stats", Value: "Show the timeouts you have executed."},
			{Name: p + " ranking", Value: "Show this server's executor ranking."},
			{Name: p + " history", Value: "Show the most recent timeouts."},
			{Name: p + " info", Value: "Show the bot settings."},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func statsEmbed(stats analytics.UserStats) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(stats.TopTargets))
	for _, target := range stats.TopTargets {
		lines = append(lines, fmt.Sprintf("<@%s>: %d", target.UserID, target.Count))
	}
	top := strings.Join(lines, "\n")
	if top == "" {
		top = "No data"
	}
	return &discordgo.MessageEmbed{
		Title: "📊 Your statistics",
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Executed", Value: fmt.Sprintf("%d", stats.Executed), Inline: true},
			{Name: "Targets", Value: fmt.Sprintf("%d", stats.TargetCount), Inline: true},
			{Name: "Most timed out", Value: top},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func rankingEmbed(entries []analytics.RankEntry) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s <@%s>: %d", rankLabel(i), entry.UserID, entry.Executed))
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 Timeout ranking",
		Description: strings.Join(lines, "\n"),
		Color:       colorYellow,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func rankLabel(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", i+1)
	}
}

func historyEmbed(records []history.TimeoutRecord) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, fmt.Sprintf("<t:%d:f> <@%s> → <@%s> (%ds)", rec.Timestamp.Unix(), rec.ExecutorID, rec.TargetID, rec.Duration))
	}
	return &discordgo.MessageEmbed{
		Title:       "📜 Recent timeouts",
		Description: strings.Join(lines, "\n"),
		Color:       colorFuchsia,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func infoEmbed(cfg config.Settings, summary analytics.Summary) *discordgo.MessageEmbed {
	role := cfg.TargetRoleID
	if role == "" {
		role = "not set"
	}
	return &discordgo.MessageEmbed{
		Title: "ℹ️ Bot settings",
		Color: colorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Timeout range", Value: fmt.Sprintf("%d to %d seconds", cfg.MinTimeout, cfg.MaxTimeout), Inline: true},
			{Name: "Cooldown", Value: fmt.Sprintf("%d seconds", cfg.CooldownSeconds), Inline: true},
			{Name: "Target role ID", Value: role},
			{Name: "Timeouts in this server", Value: fmt.Sprintf("%d", summary.GuildTimeouts), Inline: true},
			{Name: "Total timeouts", Value: fmt.Sprintf("%d", summary.TotalTimeouts), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func successEmbed(targetID, executorID string, duration, cooldownSeconds int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "✅ Timeout applied",
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: "<@" + targetID + ">", Inline: true},
			{Name: "Duration", Value: fmt.Sprintf("%d seconds", duration), Inline: true},
			{Name: "Executor", Value: "<@" + executorID + ">", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Cooldown until next use: %d seconds", cooldownSeconds)},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
