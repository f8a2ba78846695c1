package moderation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"eta-moderator/internal/audit"
	"eta-moderator/internal/config"
	"eta-moderator/internal/cooldown"
	"eta-moderator/internal/eligibility"
	"eta-moderator/internal/history"
	"eta-moderator/internal/metrics"

	"go.uber.org/zap"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusDenied         Status = "denied"
	StatusCooldownActive Status = "cooldown_active"
	StatusActionFailed   Status = "action_failed"
	StatusPersistFailed  Status = "persist_failed"
)

// Outcome is the result of one timeout request. Only the fields relevant to
// Status are set.
type Outcome struct {
	Status       Status
	Duration     int
	Reason       eligibility.Reason
	CooldownLeft int
	Err          error
}

// Moderator applies a timeout on the chat platform.
type Moderator interface {
	Timeout(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
}

type SettingsSource interface {
	Get() config.Settings
}

type Request struct {
	GuildID        string
	Executor       eligibility.Member
	ExecutorTag    string
	Target         eligibility.Member
	BotPermissions int64
}

type Engine struct {
	settings  SettingsSource
	cooldowns *cooldown.Tracker
	ledger    *history.Ledger
	moderator Moderator
	audit     *audit.Logger
	metrics   *metrics.Metrics
	logger    *zap.Logger
	intN      func(n int) int
}

func NewEngine(settings SettingsSource, cooldowns *cooldown.Tracker, ledger *history.Ledger, moderator Moderator, auditLogger *audit.Logger, m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		settings:  settings,
		cooldowns: cooldowns,
		ledger:    ledger,
		moderator: moderator,
		audit:     auditLogger,
		metrics:   m,
		logger:    logger,
		intN:      rand.IntN,
	}
}

// WithRand replaces the duration source. intN must return a value in [0, n).
func (e *Engine) WithRand(intN func(n int) int) {
	e.intN = intN
}

// Execute runs one timeout request. On any outcome other than success no
// cooldown, history or statistics change is made.
func (e *Engine) Execute(ctx context.Context, req Request) Outcome {
	cfg := e.settings.Get()

	decision := eligibility.Evaluate(eligibility.Request{
		Executor:       req.Executor,
		Target:         req.Target,
		BotPermissions: req.BotPermissions,
	}, cfg.TargetRoleID)
	if !decision.Allowed {
		e.audit.Log(ctx, audit.LevelInfo, req.GuildID, req.Executor.ID, "timeout_denied", fmt.Sprintf("target=%s reason=%s", req.Target.ID, decision.Reason))
		return e.finish(Outcome{Status: StatusDenied, Reason: decision.Reason})
	}

	unlock := e.cooldowns.Lock(req.GuildID, req.Executor.ID)
	defer unlock()

	if left := e.cooldowns.Check(req.GuildID, req.Executor.ID); left > 0 {
		return e.finish(Outcome{Status: StatusCooldownActive, CooldownLeft: left})
	}

	duration := e.drawDuration(cfg.MinTimeout, cfg.MaxTimeout)
	reason := fmt.Sprintf("ETA automated timeout (executor: %s)", executorLabel(req))
	if err := e.moderator.Timeout(ctx, req.GuildID, req.Target.ID, time.Duration(duration)*time.Second, reason); err != nil {
		e.logger.Warn("timeout action failed",
			zap.String("guild_id", req.GuildID),
			zap.String("user_id", req.Executor.ID),
			zap.String("target_id", req.Target.ID),
			zap.Error(err),
		)
		e.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.Executor.ID, "timeout_failed", fmt.Sprintf("target=%s", req.Target.ID))
		return e.finish(Outcome{Status: StatusActionFailed, Err: err})
	}

	now := e.cooldowns.Now()
	rec := history.TimeoutRecord{
		GuildID:    req.GuildID,
		ExecutorID: req.Executor.ID,
		TargetID:   req.Target.ID,
		Duration:   duration,
		Timestamp:  now.UTC(),
	}
	if err := e.ledger.Record(ctx, rec); err != nil {
		e.logger.Error("history persist failed",
			zap.String("guild_id", req.GuildID),
			zap.String("user_id", req.Executor.ID),
			zap.String("target_id", req.Target.ID),
			zap.Error(err),
		)
		e.audit.Log(ctx, audit.LevelCrit, req.GuildID, req.Executor.ID, "timeout_persist_failed", fmt.Sprintf("target=%s duration_s=%d", req.Target.ID, duration))
		return e.finish(Outcome{Status: StatusPersistFailed, Duration: duration, Err: err})
	}
	e.cooldowns.Set(req.GuildID, req.Executor.ID, time.Duration(cfg.CooldownSeconds)*time.Second)
	e.metrics.SetHistoryRecords(e.ledger.Len())

	e.audit.Log(ctx, audit.LevelInfo, req.GuildID, req.Executor.ID, "timeout_executed", fmt.Sprintf("target=%s duration_s=%d", req.Target.ID, duration))
	return e.finish(Outcome{Status: StatusSuccess, Duration: duration})
}

func (e *Engine) finish(out Outcome) Outcome {
	e.metrics.ObserveOutcome(string(out.Status))
	return out
}

// drawDuration picks a whole number of seconds in [lo, hi].
func (e *Engine) drawDuration(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + e.intN(hi-lo+1)
}

func executorLabel(req Request) string {
	if req.ExecutorTag != "" {
		return req.ExecutorTag
	}
	return req.Executor.ID
}
