package gamification

import (
	"time"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// Leveling maps cumulative XP to levels and ranks. Level 1 covers
// [0, FirstLevelCeiling); from there each LevelStep XP is one level, so with
// the defaults level n >= 2 starts at n*100 XP.
type Leveling struct {
	cfg Config
}

func NewLeveling(cfg Config) *Leveling {
	return &Leveling{cfg: cfg}
}

func (l *Leveling) LevelFromXP(totalXP int) int {
	if totalXP < l.cfg.FirstLevelCeiling {
		return 1
	}
	return 2 + (totalXP-l.cfg.FirstLevelCeiling)/l.cfg.LevelStep
}

// Threshold is the total XP at which level starts.
func (l *Leveling) Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	return l.cfg.FirstLevelCeiling + (level-2)*l.cfg.LevelStep
}

func (l *Leveling) XPToNextLevel(totalXP int) int {
	return max(0, l.Threshold(l.LevelFromXP(totalXP)+1)-totalXP)
}

func (l *Leveling) RankFor(level int) domain.Rank {
	for _, r := range l.cfg.Ranks {
		if level >= r.MinLevel {
			return r.Rank
		}
	}
	return domain.RankE
}

// Progress describes moving from previousTotal to newTotal. A user with no
// history starts at previousTotal 0, which is level 1.
func (l *Leveling) Progress(previousTotal, newTotal int) domain.LevelUpdate {
	oldLevel := l.LevelFromXP(previousTotal)
	newLevel := l.LevelFromXP(newTotal)
	return domain.LevelUpdate{
		OldLevel:      oldLevel,
		NewLevel:      newLevel,
		LevelUp:       newLevel > oldLevel,
		OldTotalXP:    previousTotal,
		NewTotalXP:    newTotal,
		XPToNextLevel: l.XPToNextLevel(newTotal),
		Rank:          l.RankFor(newLevel),
	}
}

// AddXP applies a delta to an existing total. Negative deltas are ignored so
// that totals never decrease.
func (l *Leveling) AddXP(existingTotal, delta int) domain.LevelUpdate {
	return l.Progress(existingTotal, existingTotal+max(0, delta))
}

// Snapshot builds the level row for the outcome of an update. prev may be
// nil for a first award; LastLevelUp carries over unless a level was gained.
func (l *Leveling) Snapshot(userID string, prev *domain.UserLevel, upd domain.LevelUpdate, now time.Time) *domain.UserLevel {
	level := &domain.UserLevel{
		UserID:        userID,
		CurrentLevel:  upd.NewLevel,
		CurrentXP:     upd.NewTotalXP,
		TotalXP:       upd.NewTotalXP,
		XPToNextLevel: upd.XPToNextLevel,
		Rank:          upd.Rank,
		UpdatedAt:     now,
	}
	if prev != nil {
		level.LastLevelUp = prev.LastLevelUp
	}
	if upd.LevelUp {
		ts := now
		level.LastLevelUp = &ts
	}
	return level
}
