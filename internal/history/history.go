package history

import (
	"maps"
	"slices"
	"time"
)

// TimeoutRecord is one executed timeout.
type TimeoutRecord struct {
	GuildID    string    `json:"guildId"`
	ExecutorID string    `json:"executorId"`
	TargetID   string    `json:"targetId"`
	Duration   int       `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExecutorStats aggregates the timeouts one member executed in a guild.
// Executed always equals the sum of Targets.
type ExecutorStats struct {
	Executed    int            `json:"executed"`
	Targets     map[string]int `json:"targets"`
	TargetOrder []string       `json:"targetOrder,omitempty"`
}

// Statistics maps guild id to executor id to aggregates.
type Statistics map[string]map[string]*ExecutorStats

// Document is the persisted history: the raw record sequence in
// chronological order plus the aggregates derived from it.
type Document struct {
	Timeouts   []TimeoutRecord `json:"timeouts"`
	Statistics Statistics      `json:"statistics"`
}

func NewDocument() Document {
	return Document{Timeouts: []TimeoutRecord{}, Statistics: Statistics{}}
}

// Apply appends rec and updates the aggregates in one step.
func (d *Document) Apply(rec TimeoutRecord) {
	d.Timeouts = append(d.Timeouts, rec)

	guild := d.Statistics[rec.GuildID]
	if guild == nil {
		guild = make(map[string]*ExecutorStats)
		d.Statistics[rec.GuildID] = guild
	}
	stats := guild[rec.ExecutorID]
	if stats == nil {
		stats = &ExecutorStats{Targets: make(map[string]int)}
		guild[rec.ExecutorID] = stats
	}
	stats.Executed++
	if _, seen := stats.Targets[rec.TargetID]; !seen {
		stats.TargetOrder = append(stats.TargetOrder, rec.TargetID)
	}
	stats.Targets[rec.TargetID]++
}

// revert undoes the most recent Apply of rec.
func (d *Document) revert(rec TimeoutRecord) {
	if n := len(d.Timeouts); n > 0 {
		d.Timeouts = d.Timeouts[:n-1]
	}
	guild := d.Statistics[rec.GuildID]
	if guild == nil {
		return
	}
	stats := guild[rec.ExecutorID]
	if stats == nil {
		return
	}
	stats.Executed--
	stats.Targets[rec.TargetID]--
	if stats.Targets[rec.TargetID] <= 0 {
		delete(stats.Targets, rec.TargetID)
		stats.TargetOrder = slices.DeleteFunc(stats.TargetOrder, func(id string) bool { return id == rec.TargetID })
	}
	if stats.Executed <= 0 {
		delete(guild, rec.ExecutorID)
	}
	if len(guild) == 0 {
		delete(d.Statistics, rec.GuildID)
	}
}

func (d Document) Clone() Document {
	out := Document{
		Timeouts:   slices.Clone(d.Timeouts),
		Statistics: make(Statistics, len(d.Statistics)),
	}
	if out.Timeouts == nil {
		out.Timeouts = []TimeoutRecord{}
	}
	for guildID, guild := range d.Statistics {
		copied := make(map[string]*ExecutorStats, len(guild))
		for executorID, stats := range guild {
			copied[executorID] = &ExecutorStats{
				Executed:    stats.Executed,
				Targets:     maps.Clone(stats.Targets),
				TargetOrder: slices.Clone(stats.TargetOrder),
			}
		}
		out.Statistics[guildID] = copied
	}
	return out
}

// normalize repairs documents written without target order or with nil
// collections. First-seen order is recovered from the record sequence.
func (d *Document) normalize() {
	if d.Timeouts == nil {
		d.Timeouts = []TimeoutRecord{}
	}
	if d.Statistics == nil {
		d.Statistics = Statistics{}
	}
	var missing bool
	for _, guild := range d.Statistics {
		for _, stats := range guild {
			if stats.Targets == nil {
				stats.Targets = make(map[string]int)
			}
			if len(stats.TargetOrder) != len(stats.Targets) {
				stats.TargetOrder = nil
				missing = true
			}
		}
	}
	if !missing {
		return
	}
	for _, rec := range d.Timeouts {
		stats := d.Statistics[rec.GuildID][rec.ExecutorID]
		if stats == nil || slices.Contains(stats.TargetOrder, rec.TargetID) {
			continue
		}
		if _, ok := stats.Targets[rec.TargetID]; ok {
			stats.TargetOrder = append(stats.TargetOrder, rec.TargetID)
		}
	}
	// targets with no surviving record go last in key order
	for _, guild := range d.Statistics {
		for _, stats := range guild {
			for _, id := range slices.Sorted(maps.Keys(stats.Targets)) {
				if !slices.Contains(stats.TargetOrder, id) {
					stats.TargetOrder = append(stats.TargetOrder, id)
				}
			}
		}
	}
}
