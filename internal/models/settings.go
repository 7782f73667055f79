// internal/models/settings.go
package models

import "time"

// GameSettings is the host-configurable game configuration snapshot held
// by each room.
type GameSettings struct {
	StartYear         int       `json:"startYear"`
	EndYear           int       `json:"endYear"`
	TopNSubjects      int       `json:"topNSubjects"`
	MetaTags          []string  `json:"metaTags"`
	UseIndex          bool      `json:"useIndex"`
	IndexID           string    `json:"indexId,omitempty"`
	AddedSubjects     []Subject `json:"addedSubjects"`
	MainCharacterOnly bool      `json:"mainCharacterOnly"`
	CharacterNum      int       `json:"characterNum"`
	MaxAttempts       int       `json:"maxAttempts"`
	EnableHints       bool      `json:"enableHints"`
	IncludeGame       bool      `json:"includeGame"`
	TimeLimit         int       `json:"timeLimit"`
	SubjectSearch     bool      `json:"subjectSearch"`
	TotalRounds       int       `json:"totalRounds"`
}

// DefaultGameSettings returns the settings a room starts with when the
// creator supplies none.
func DefaultGameSettings() GameSettings {
	year := time.Now().Year()
	return GameSettings{
		StartYear:         year - 10,
		EndYear:           year,
		TopNSubjects:      50,
		MetaTags:          []string{"", "", ""},
		AddedSubjects:     []Subject{},
		MainCharacterOnly: true,
		CharacterNum:      6,
		MaxAttempts:       5,
		TimeLimit:         60,
		SubjectSearch:     true,
		TotalRounds:       5,
	}
}
