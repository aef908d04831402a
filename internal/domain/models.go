package domain

import "time"

// Option is a single selectable answer. Text and feedback are localized by
// language tag; the correctness flag is language-independent.
type Option struct {
	Text     map[string]string `json:"text"`
	Feedback map[string]string `json:"feedback"`
	Correct  bool              `json:"isCorrect"`
}

// Question is a quiz question: a localized situation plus an ordered set of
// options, exactly one of which is correct.
type Question struct {
	ID        string            `json:"id"`
	Situation map[string]string `json:"situation"`
	Options   []Option          `json:"options"`
}

// Session is the ephemeral quiz-in-progress record for one identity. Lang is
// snapshotted at session start so a mid-run language change cannot corrupt
// option matching.
type Session struct {
	Identity   string
	Lang       string
	Turn       int
	RunScore   int
	QuestionID string
	StartedAt  time.Time
}

// ScoreRow is one persistent leaderboard entry.
type ScoreRow struct {
	Identity string `json:"identity"`
	Points   int    `json:"points"`
}

// LeaderboardRow is a render-ready leaderboard entry.
type LeaderboardRow struct {
	Identity string `json:"identity"`
	Points   int    `json:"points"`
	Rank     string `json:"rank"`
}

// Prompt is a posed question: localized situation text plus the exact option
// labels the user may reply with.
type Prompt struct {
	Text    string
	Options []string
}

// Summary reports a completed run.
type Summary struct {
	RunScore    int
	Total       int
	Rank        string
	Achievement string // empty when no threshold was hit
}

// LearnExample is one worked safety example shown by the learn command.
type LearnExample struct {
	Situation   string   `json:"situation"`
	Explanation string   `json:"explanation"`
	Tips        []string `json:"tips"`
}
