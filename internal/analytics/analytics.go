package analytics

import (
	"slices"
	"strings"

	"eta-moderator/internal/history"
)

const (
	TopTargetsLimit = 5
	RankingLimit    = 10
	RecentLimit     = 10
)

// Service answers the read-only statistics queries of the chat commands.
type Service struct {
	ledger *history.Ledger
}

func New(ledger *history.Ledger) *Service {
	return &Service{ledger: ledger}
}

type TargetCount struct {
	UserID string
	Count  int
}

type UserStats struct {
	Executed    int
	TargetCount int
	TopTargets  []TargetCount
}

type RankEntry struct {
	UserID   string
	Executed int
}

type Summary struct {
	TotalTimeouts int
	GuildTimeouts int
}

// UserStats reports what executorID has done in guildID. ok is false when
// the executor has no records there.
func (s *Service) UserStats(guildID, executorID string) (stats UserStats, ok bool) {
	s.ledger.View(func(doc *history.Document) {
		entry := doc.Statistics[guildID][executorID]
		if entry == nil || entry.Executed == 0 {
			return
		}
		ok = true
		stats = UserStats{
			Executed:    entry.Executed,
			TargetCount: len(entry.Targets),
			TopTargets:  topTargets(entry, TopTargetsLimit),
		}
	})
	return stats, ok
}

// topTargets orders by count, keeping first-seen order between equal counts.
func topTargets(entry *history.ExecutorStats, limit int) []TargetCount {
	out := make([]TargetCount, 0, len(entry.TargetOrder))
	for _, id := range entry.TargetOrder {
		if n := entry.Targets[id]; n > 0 {
			out = append(out, TargetCount{UserID: id, Count: n})
		}
	}
	slices.SortStableFunc(out, func(a, b TargetCount) int {
		return b.Count - a.Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Ranking lists the top executors of guildID. Equal counts are ordered by
// user id.
func (s *Service) Ranking(guildID string, limit int) []RankEntry {
	if limit <= 0 {
		limit = RankingLimit
	}
	var out []RankEntry
	s.ledger.View(func(doc *history.Document) {
		for userID, entry := range doc.Statistics[guildID] {
			out = append(out, RankEntry{UserID: userID, Executed: entry.Executed})
		}
	})
	slices.SortFunc(out, func(a, b RankEntry) int {
		if a.Executed != b.Executed {
			return b.Executed - a.Executed
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Recent returns up to limit records of guildID, newest first.
func (s *Service) Recent(guildID string, limit int) []history.TimeoutRecord {
	if limit <= 0 {
		limit = RecentLimit
	}
	var out []history.TimeoutRecord
	s.ledger.View(func(doc *history.Document) {
		for i := len(doc.Timeouts) - 1; i >= 0 && len(out) < limit; i-- {
			if doc.Timeouts[i].GuildID == guildID {
				out = append(out, doc.Timeouts[i])
			}
		}
	})
	return out
}

func (s *Service) Summary(guildID string) Summary {
	var summary Summary
	s.ledger.View(func(doc *history.Document) {
		summary.TotalTimeouts = len(doc.Timeouts)
		for _, entry := range doc.Statistics[guildID] {
			summary.GuildTimeouts += entry.Executed
		}
	})
	return summary
}
