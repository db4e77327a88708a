package journal

import (
	"slices"
	"time"
)

// Preferences are user-editable settings stored with the profile.
type Preferences struct {
	Name     string `json:"name,omitempty" yaml:"name"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone"`
}

// Profile is the singleton engagement record of the local user.
type Profile struct {
	CreatedAt          time.Time   `json:"created_at"`
	CurrentStreak      int         `json:"current_streak"`
	LongestStreak      int         `json:"longest_streak"`
	TotalEntries       int         `json:"total_entries"`
	LastEntryDate      *string     `json:"last_entry_date"`
	MilestonesAchieved []string    `json:"milestones_achieved"`
	Preferences        Preferences `json:"preferences"`
}

// NewProfile returns the profile of a user who has never saved an entry.
func NewProfile(now time.Time) Profile {
	return Profile{
		CreatedAt:          now,
		MilestonesAchieved: []string{},
	}
}

// HasMilestone reports whether name was already unlocked.
func (p Profile) HasMilestone(name string) bool {
	return slices.Contains(p.MilestonesAchieved, name)
}
