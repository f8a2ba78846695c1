package bot

import (
	"context"
	"errors"
	"time"

	"eta-moderator/internal/eligibility"

	"github.com/bwmarrin/discordgo"
)

var errNoMember = errors.New("member not found")

// Moderator applies timeouts through the Discord REST API.
type Moderator struct {
	session *discordgo.Session
}

func NewModerator(session *discordgo.Session) *Moderator {
	return &Moderator{session: session}
}

func (m *Moderator) Timeout(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	return m.session.GuildMemberTimeout(guildID, userID, &until,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
}

// directory resolves guild members and the bot's own permissions.
type directory interface {
	member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	selfPermissions(ctx context.Context, guildID string) (int64, error)
}

// replier sends replies to command messages. *discordgo.Session satisfies it.
type replier interface {
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbedReply(channelID string, embed *discordgo.MessageEmbed, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type sessionDirectory struct {
	session *discordgo.Session
}

// member resolves a guild member from the state cache, falling back to REST.
func (d sessionDirectory) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	member, err := d.session.State.Member(guildID, userID)
	if err == nil && member != nil && member.User != nil {
		return member, nil
	}
	member, err = d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if member == nil || member.User == nil {
		return nil, errNoMember
	}
	return member, nil
}

// selfPermissions computes the bot's guild-level permissions.
func (d sessionDirectory) selfPermissions(ctx context.Context, guildID string) (int64, error) {
	if d.session.State.User == nil {
		return 0, errNoMember
	}
	self, err := d.member(ctx, guildID, d.session.State.User.ID)
	if err != nil {
		return 0, err
	}

	guild, err := d.session.State.Guild(guildID)
	if err != nil || guild == nil || len(guild.Roles) == 0 {
		guild, err = d.session.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return 0, err
		}
	}
	return guildPermissions(guild.ID, guild.OwnerID, guild.Roles, self), nil
}

// guildPermissions combines the @everyone role with the member's roles. The
// owner and administrators hold every permission.
func guildPermissions(guildID, ownerID string, roles []*discordgo.Role, member *discordgo.Member) int64 {
	if member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == ownerID {
		return discordgo.PermissionAll
	}

	roleMap := make(map[string]*discordgo.Role, len(roles))
	for _, role := range roles {
		if role != nil {
			roleMap[role.ID] = role
		}
	}

	var perms int64
	if everyone := roleMap[guildID]; everyone != nil {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// eligibilityMember flattens a Discord user and member into the fields the
// eligibility rules read. member may be nil or lack its user.
func eligibilityMember(user *discordgo.User, member *discordgo.Member) eligibility.Member {
	var out eligibility.Member
	if user == nil && member != nil {
		user = member.User
	}
	if user != nil {
		out.ID = user.ID
		out.Bot = user.Bot
	}
	if member != nil {
		out.Roles = append([]string(nil), member.Roles...)
	}
	return out
}
