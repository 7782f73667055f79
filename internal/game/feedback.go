// internal/game/feedback.go
package game

import (
	"strings"

	"github.com/animeguessr/server/internal/models"
)

// Feedback holds the comparison symbols for one guess against the
// answer. Symbols: "=" exact/near-exact, "+"/"-" close above/below,
// "++"/"--" far above/below, "?" reference value unknown.
type Feedback struct {
	Gender             string
	Popularity         string
	AppearancesCount   string
	LatestAppearance   string
	EarliestAppearance string
	Rating             string
	SharedAppearances  models.SharedAppearances
	SharedMetaTags     []string
}

// GenerateFeedback compares a guessed character against the answer. Pure
// function, no side effects.
func GenerateFeedback(guess, answer models.CharacterWithAppearances) Feedback {
	gender := "no"
	if guess.Gender == answer.Gender {
		gender = "yes"
	}
	return Feedback{
		Gender:             gender,
		Popularity:         popularityFeedback(guess.Popularity, answer.Popularity),
		AppearancesCount:   appearancesCountFeedback(len(guess.Appearances), answer),
		LatestAppearance:   yearFeedback(guess.LatestAppearance, answer.LatestAppearance),
		EarliestAppearance: yearFeedback(guess.EarliestAppearance, answer.EarliestAppearance),
		Rating:             ratingFeedback(guess.HighestRating, answer.HighestRating),
		SharedAppearances:  sharedAppearances(guess, answer),
		SharedMetaTags:     sharedMetaTags(guess.MetaTags, answer.MetaTags),
	}
}

func popularityFeedback(guess, answer int) string {
	if guess <= 0 || answer <= 0 {
		return "?"
	}
	if guess == answer {
		return "="
	}
	diff := guess - answer
	if diff < 0 {
		diff = -diff
	}
	sign := "-"
	if guess > answer {
		sign = "+"
	}
	if float64(diff)/float64(answer) <= 0.1 {
		return sign
	}
	return sign + sign
}

func appearancesCountFeedback(guessCount int, answer models.CharacterWithAppearances) string {
	if answer.Appearances == nil {
		return "?"
	}
	answerCount := len(answer.Appearances)
	if guessCount == answerCount {
		return "="
	}
	diff := guessCount - answerCount
	if diff < 0 {
		diff = -diff
	}
	sign := "-"
	if guessCount > answerCount {
		sign = "+"
	}
	pct := 1.0
	if answerCount > 0 {
		pct = float64(diff) / float64(answerCount)
	}
	if pct <= 0.2 {
		return sign
	}
	return sign + sign
}

func yearFeedback(guessYear, answerYear int) string {
	if answerYear <= 0 {
		return "?"
	}
	if guessYear == answerYear {
		return "="
	}
	diff := guessYear - answerYear
	sign := "+"
	if diff < 0 {
		diff = -diff
		sign = "-"
	}
	if diff <= 3 {
		return sign
	}
	return sign + sign
}

func ratingFeedback(guessRating, answerRating float64) string {
	if answerRating == 0 || guessRating == -1 || answerRating == -1 {
		return "?"
	}
	diff := guessRating - answerRating
	sign := "+"
	if diff < 0 {
		diff = -diff
		sign = "-"
	}
	if diff < 0.1 {
		return "="
	}
	if diff <= 0.5 {
		return sign
	}
	return sign + sign
}

func sharedAppearances(guess, answer models.CharacterWithAppearances) models.SharedAppearances {
	if answer.Appearances == nil {
		return models.SharedAppearances{}
	}
	answerIDs := make(map[int]struct{}, len(answer.Appearances))
	for _, a := range answer.Appearances {
		answerIDs[a.ID] = struct{}{}
	}
	shared := models.SharedAppearances{}
	for _, a := range guess.Appearances {
		if _, ok := answerIDs[a.ID]; ok {
			if shared.Count == 0 {
				shared.First = a.Name
			}
			shared.Count++
		}
	}
	return shared
}

func sharedMetaTags(guessTags, answerTags []string) []string {
	answerSet := make(map[string]struct{}, len(answerTags))
	for _, tag := range answerTags {
		answerSet[strings.ToLower(tag)] = struct{}{}
	}
	shared := []string{}
	for _, tag := range guessTags {
		if _, ok := answerSet[strings.ToLower(tag)]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}

// BuildGuessData turns a fetched guess character into the per-guess
// record stored in a player's history. A guess that matches the answer
// by identity short-circuits to all-exact feedback.
func BuildGuessData(guess, answer models.CharacterWithAppearances) models.GuessData {
	data := models.GuessData{
		Icon:               guess.Icon,
		Name:               guess.Name,
		NameCn:             guess.NameCn,
		Gender:             guess.Gender,
		LatestAppearance:   guess.LatestAppearance,
		EarliestAppearance: guess.EarliestAppearance,
		HighestRating:      guess.HighestRating,
		AppearancesCount:   len(guess.Appearances),
		Popularity:         guess.Popularity,
		MetaTags:           guess.MetaTags,
	}
	if data.Popularity == 0 {
		data.Popularity = -1
	}
	if guess.ID == answer.ID {
		data.GenderFeedback = "yes"
		data.LatestAppearanceFeedback = "="
		data.EarliestAppearanceFeedback = "="
		data.RatingFeedback = "="
		data.AppearancesCountFeedback = "="
		data.PopularityFeedback = "="
		data.SharedMetaTags = guess.MetaTags
		if len(guess.Appearances) > 0 {
			data.SharedAppearances = models.SharedAppearances{
				First: guess.Appearances[0].Name,
				Count: len(guess.Appearances),
			}
		}
		data.IsAnswer = true
		return data
	}
	fb := GenerateFeedback(guess, answer)
	data.GenderFeedback = fb.Gender
	data.LatestAppearanceFeedback = fb.LatestAppearance
	data.EarliestAppearanceFeedback = fb.EarliestAppearance
	data.RatingFeedback = fb.Rating
	data.AppearancesCountFeedback = fb.AppearancesCount
	data.PopularityFeedback = fb.Popularity
	data.SharedAppearances = fb.SharedAppearances
	data.SharedMetaTags = fb.SharedMetaTags
	return data
}

// GiveUpGuess is the sentinel entry used to pad a player's history up to
// the attempt limit when they forfeit the round.
func GiveUpGuess() models.GuessData {
	return models.GuessData{
		Name:               "gave up",
		NameCn:             "gave up",
		LatestAppearance:   -1,
		EarliestAppearance: -1,
		HighestRating:      -1,
		Popularity:         -1,
		SharedAppearances:  models.SharedAppearances{},
		MetaTags:           []string{},
		SharedMetaTags:     []string{},
		GaveUp:             true,
	}
}
