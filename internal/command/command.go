// Package command turns prefixed chat messages into routed commands.
package command

import (
	"context"
	"errors"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindHelp
	KindStats
	KindRanking
	KindHistory
	KindInfo
	KindModerate
	KindUsage
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindStats:
		return "stats"
	case KindRanking:
		return "ranking"
	case KindHistory:
		return "history"
	case KindInfo:
		return "info"
	case KindModerate:
		return "moderate"
	case KindUsage:
		return "usage"
	default:
		return "none"
	}
}

var ErrUsage = errors.New("usage: <prefix> @user")

var aliases = map[string]Kind{
	"help":    KindHelp,
	"ヘルプ":     KindHelp,
	"stats":   KindStats,
	"統計":      KindStats,
	"ranking": KindRanking,
	"ランキング":   KindRanking,
	"history": KindHistory,
	"履歴":      KindHistory,
	"info":    KindInfo,
	"情報":      KindInfo,
}

type Command struct {
	Kind     Kind
	Name     string
	Args     []string
	TargetID string
	Err      error
}

// Parse reads content sent with the given prefix. mentions holds the user ids
// the platform resolved as mentioned in the message. ok is false when the
// message is not addressed to us.
func Parse(content, prefix string, mentions []string) (cmd Command, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	rest := content[len(prefix):]
	if rest != "" && !startsWithSpace(rest) {
		return Command{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Command{Kind: KindUsage, Err: ErrUsage}, true
	}

	name := strings.ToLower(fields[0])
	cmd = Command{Name: name, Args: fields[1:]}
	if kind, known := aliases[name]; known {
		cmd.Kind = kind
		return cmd, true
	}

	targets := distinct(mentions)
	switch len(targets) {
	case 0:
		if hasMentionToken(fields) {
			cmd.Kind = KindUsage
			cmd.Err = ErrUsage
			return cmd, true
		}
		return Command{}, false
	case 1:
		cmd.Kind = KindModerate
		cmd.TargetID = targets[0]
		cmd.Args = fields
		return cmd, true
	default:
		cmd.Kind = KindUsage
		cmd.Err = ErrUsage
		return cmd, true
	}
}

type Handlers interface {
	Help(ctx context.Context)
	Stats(ctx context.Context)
	Ranking(ctx context.Context)
	History(ctx context.Context)
	Info(ctx context.Context)
	Moderate(ctx context.Context, targetID string)
	Usage(ctx context.Context)
}

// Dispatch routes cmd to the matching handler.
func Dispatch(ctx context.Context, cmd Command, h Handlers) {
	switch cmd.Kind {
	case KindHelp:
		h.Help(ctx)
	case KindStats:
		h.Stats(ctx)
	case KindRanking:
		h.Ranking(ctx)
	case KindHistory:
		h.History(ctx)
	case KindInfo:
		h.Info(ctx)
	case KindModerate:
		h.Moderate(ctx, cmd.TargetID)
	case KindUsage:
		h.Usage(ctx)
	}
}

func startsWithSpace(s string) bool {
	return strings.TrimLeft(s, " \t\n\r　") != s
}

func distinct(ids []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// hasMentionToken spots a user mention the platform failed to resolve,
// e.g. a member that left the guild.
func hasMentionToken(fields []string) bool {
	for _, field := range fields {
		if strings.HasPrefix(field, "<@") && strings.HasSuffix(field, ">") && !strings.HasPrefix(field, "<@&") {
			return true
		}
	}
	return false
}
