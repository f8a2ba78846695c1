// Package admin exposes the settings and statistics documents over HTTP.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eta-moderator/internal/audit"
	"eta-moderator/internal/config"
	"eta-moderator/internal/history"
	"eta-moderator/internal/metrics"
	"eta-moderator/internal/settings"
	"eta-moderator/internal/storage"
)

// AuditReader lists persisted audit entries.
type AuditReader interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

// Service implements the administrative operations. Every mutation requires
// the admin password stored in the settings document.
type Service struct {
	settings *settings.Store
	ledger   *history.Ledger
	audit    *audit.Logger
	reader   AuditReader
	metrics  *metrics.Metrics
}

func NewService(settingsStore *settings.Store, ledger *history.Ledger, auditLogger *audit.Logger, reader AuditReader, m *metrics.Metrics) *Service {
	return &Service{
		settings: settingsStore,
		ledger:   ledger,
		audit:    auditLogger,
		reader:   reader,
		metrics:  m,
	}
}

// GetConfig returns the settings with secrets replaced by the redaction marker.
func (s *Service) GetConfig() config.Settings {
	return s.settings.Redacted()
}

// SetConfig merges patch into the settings. The returned value is redacted.
func (s *Service) SetConfig(ctx context.Context, secret string, patch config.SettingsPatch) (config.Settings, error) {
	updated, err := s.settings.Update(ctx, secret, patch)
	if err != nil {
		if errors.Is(err, settings.ErrUnauthorized) {
			return config.Settings{}, s.Unauthorized(ctx, "config")
		}
		return config.Settings{}, err
	}
	s.audit.Log(ctx, audit.LevelInfo, "", "", "settings_updated", "fields="+strings.Join(patch.Fields(), ","))
	return updated.Redacted(), nil
}

// GetStatistics returns a copy of the full history document.
func (s *Service) GetStatistics() history.Document {
	return s.ledger.Snapshot()
}

// ResetStatistics clears the history document.
func (s *Service) ResetStatistics(ctx context.Context, secret string) error {
	if !s.settings.Authorize(secret) {
		return s.Unauthorized(ctx, "statistics_reset")
	}
	if err := s.ledger.Reset(ctx); err != nil {
		return fmt.Errorf("reset statistics: %w", err)
	}
	s.metrics.SetHistoryRecords(0)
	s.audit.Log(ctx, audit.LevelWarn, "", "", "statistics_reset", "")
	return nil
}

// ListAudit returns the audit entries of guildID recorded at or after since,
// newest first. Admin events use the empty guild ID.
func (s *Service) ListAudit(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error) {
	logs, err := s.reader.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// Unauthorized records a rejected admin request for route and returns
// settings.ErrUnauthorized.
func (s *Service) Unauthorized(ctx context.Context, route string) error {
	s.audit.Log(ctx, audit.LevelWarn, "", "", "admin_unauthorized", "route="+route)
	return settings.ErrUnauthorized
}
