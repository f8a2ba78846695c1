package bot

import (
	"context"
	"time"

	"eta-moderator/internal/analytics"
	"eta-moderator/internal/command"
	"eta-moderator/internal/config"
	"eta-moderator/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// requestTimeout bounds the REST calls made while handling one message.
const requestTimeout = 15 * time.Second

type SettingsSource interface {
	Get() config.Settings
}

type Bot struct {
	settings  SettingsSource
	engine    *moderation.Engine
	analytics *analytics.Service
	logger    *zap.Logger
	session   *discordgo.Session
	members   directory
}

// New builds a session for token. The engine is expected to apply timeouts
// through NewModerator(b.Session()).
func New(token string, settings SettingsSource, analyticsService *analytics.Service, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return &Bot{
		settings:  settings,
		analytics: analyticsService,
		logger:    logger,
		session:   session,
		members:   sessionDirectory{session: session},
	}, nil
}

func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// SetEngine attaches the moderation engine. It must be called before Start.
func (b *Bot) SetEngine(engine *moderation.Engine) {
	b.engine = engine
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	return b.session.Open()
}

func (b *Bot) Close() {
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	cfg := b.settings.Get()
	b.logger.Info("discord ready",
		zap.String("user", event.User.String()),
		zap.Int("guilds", len(event.Guilds)),
		zap.Int("web_port", cfg.WebPort),
	)
	if err := session.UpdateGameStatus(0, cfg.Prefix+" help"); err != nil {
		b.logger.Warn("status update failed", zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	cfg := b.settings.Get()
	if !cfg.GuildEnabled(msg.GuildID) {
		return
	}

	cmd, ok := command.Parse(msg.Content, cfg.Prefix, mentionIDs(msg.Mentions))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	b.logger.Debug("command received",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.String("command", cmd.Kind.String()),
	)
	command.Dispatch(ctx, cmd, &messageHandler{bot: b, session: session, msg: msg, cfg: cfg})
}

// messageHandler answers one command message.
type messageHandler struct {
	bot     *Bot
	session replier
	msg     *discordgo.MessageCreate
	cfg     config.Settings
}

func (h *messageHandler) Help(ctx context.Context) {
	h.replyEmbed(ctx, helpEmbed(h.cfg))
}

func (h *messageHandler) Stats(ctx context.Context) {
	stats, ok := h.bot.analytics.UserStats(h.msg.GuildID, h.msg.Author.ID)
	if !ok {
		h.reply(ctx, msgNoStats)
		return
	}
	h.replyEmbed(ctx, statsEmbed(stats))
}

func (h *messageHandler) Ranking(ctx context.Context) {
	entries := h.bot.analytics.Ranking(h.msg.GuildID, analytics.RankingLimit)
	if len(entries) == 0 {
		h.reply(ctx, msgNoRanking)
		return
	}
	h.replyEmbed(ctx, rankingEmbed(entries))
}

func (h *messageHandler) History(ctx context.Context) {
	records := h.bot.analytics.Recent(h.msg.GuildID, analytics.RecentLimit)
	if len(records) == 0 {
		h.reply(ctx, msgNoHistory)
		return
	}
	h.replyEmbed(ctx, historyEmbed(records))
}

func (h *messageHandler) Info(ctx context.Context) {
	h.replyEmbed(ctx, infoEmbed(h.cfg, h.bot.analytics.Summary(h.msg.GuildID)))
}

func (h *messageHandler) Usage(ctx context.Context) {
	h.reply(ctx, usageMessage(h.cfg.Prefix))
}

func (h *messageHandler) Moderate(ctx context.Context, targetID string) {
	target, err := h.bot.members.member(ctx, h.msg.GuildID, targetID)
	if err != nil {
		h.bot.logger.Debug("target lookup failed",
			zap.String("guild_id", h.msg.GuildID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		h.reply(ctx, msgMemberNotFound)
		return
	}
	botPerms, err := h.bot.members.selfPermissions(ctx, h.msg.GuildID)
	if err != nil {
		h.bot.logger.Warn("permission lookup failed", zap.String("guild_id", h.msg.GuildID), zap.Error(err))
	}

	executor := eligibilityMember(h.msg.Author, h.msg.Member)
	out := h.bot.engine.Execute(ctx, moderation.Request{
		GuildID:        h.msg.GuildID,
		Executor:       executor,
		ExecutorTag:    h.msg.Author.String(),
		Target:         eligibilityMember(target.User, target),
		BotPermissions: botPerms,
	})

	if out.Status == moderation.StatusSuccess {
		h.replyEmbed(ctx, successEmbed(targetID, h.msg.Author.ID, out.Duration, h.cfg.CooldownSeconds))
		return
	}
	h.reply(ctx, outcomeMessage(out))
}

func (h *messageHandler) reply(ctx context.Context, content string) {
	_, err := h.session.ChannelMessageSendReply(h.msg.ChannelID, content, h.msg.Reference(), discordgo.WithContext(ctx))
	if err != nil {
		h.bot.logger.Warn("reply failed", zap.String("channel_id", h.msg.ChannelID), zap.Error(err))
	}
}

func (h *messageHandler) replyEmbed(ctx context.Context, embed *discordgo.MessageEmbed) {
	_, err := h.session.ChannelMessageSendEmbedReply(h.msg.ChannelID, embed, h.msg.Reference(), discordgo.WithContext(ctx))
	if err != nil {
		h.bot.logger.Warn("reply failed", zap.String("channel_id", h.msg.ChannelID), zap.Error(err))
	}
}

func mentionIDs(users []*discordgo.User) []string {
	ids := make([]string, 0, len(users))
	for _, user := range users {
		if user != nil {
			ids = append(ids, user.ID)
		}
	}
	return ids
}
