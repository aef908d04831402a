// Package rank holds the pure scoring rules: point bands mapped to rank
// labels and the fixed achievement thresholds. Everything here is
// deterministic and safe to call concurrently.
package rank

// Band lower bounds, ascending. Each band runs from its bound up to (but not
// including) the next.
var bands = []int{0, 5, 10, 20, 30}

// AchievementThresholds are the totals that fire a one-time achievement.
// The check is strict equality: overshooting a threshold in one merge does
// not fire it retroactively.
var AchievementThresholds = []int{5, 15, 30}

// Band returns the lower bound of the rank band containing points. The bound
// doubles as the locale key suffix ("levels.<bound>").
func Band(points int) int {
	band := bands[0]
	for _, b := range bands {
		if points >= b {
			band = b
		}
	}
	return band
}

// LevelKey returns the locale key for the rank label of a points total.
func LevelKey(points int) string {
	return levelKeys[Band(points)]
}

// Achievement reports whether points sits exactly on an achievement
// threshold, and the matching locale key if so.
func Achievement(points int) (string, bool) {
	for _, t := range AchievementThresholds {
		if points == t {
			return achievementKeys[t], true
		}
	}
	return "", false
}

var levelKeys = map[int]string{
	0:  "levels.0",
	5:  "levels.5",
	10: "levels.10",
	20: "levels.20",
	30: "levels.30",
}

var achievementKeys = map[int]string{
	5:  "achievements.5",
	15: "achievements.15",
	30: "achievements.30",
}
