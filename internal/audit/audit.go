package audit

import (
	"context"
	"time"

	"eta-moderator/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Sink interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

// Logger records moderation outcomes to the audit table and the process log.
type Logger struct {
	sink   Sink
	logger *zap.Logger
	clock  func() time.Time
}

func NewLogger(sink Sink, logger *zap.Logger) *Logger {
	return &Logger{sink: sink, logger: logger, clock: time.Now}
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.clock(),
	}
	if l.sink != nil {
		if err := l.sink.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit write failed", zap.String("event", event), zap.Error(err))
		}
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
