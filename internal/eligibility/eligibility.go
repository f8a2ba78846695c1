// Package eligibility decides whether a member may time out another member.
// It reads nothing but its arguments.
package eligibility

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

type Reason string

const (
	ReasonNone                      Reason = ""
	ReasonSelfTarget                Reason = "self_target"
	ReasonBotTarget                 Reason = "bot_target"
	ReasonTargetNotEligible         Reason = "target_not_eligible"
	ReasonExecutorIneligible        Reason = "executor_ineligible"
	ReasonInsufficientBotPermission Reason = "insufficient_bot_permission"
)

type Member struct {
	ID    string
	Bot   bool
	Roles []string
}

func (m Member) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(m.Roles, roleID)
}

type Request struct {
	Executor Member
	Target   Member
	// BotPermissions is the bot's effective permission bitset in the guild.
	BotPermissions int64
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Evaluate applies the checks in a fixed order; the first failing one
// decides the reason.
func Evaluate(req Request, targetRoleID string) Decision {
	switch {
	case req.Target.ID == req.Executor.ID:
		return deny(ReasonSelfTarget)
	case req.Target.Bot:
		return deny(ReasonBotTarget)
	case !req.Target.HasRole(targetRoleID):
		return deny(ReasonTargetNotEligible)
	case req.Executor.HasRole(targetRoleID):
		return deny(ReasonExecutorIneligible)
	case !canModerate(req.BotPermissions):
		return deny(ReasonInsufficientBotPermission)
	}
	return allow()
}

func canModerate(perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&discordgo.PermissionModerateMembers != 0
}
