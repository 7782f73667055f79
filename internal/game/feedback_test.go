// internal/game/feedback_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animeguessr/server/internal/models"
)

func character(id int, gender string, popularity int) models.CharacterWithAppearances {
	return models.CharacterWithAppearances{
		Character: models.Character{
			ID:         id,
			Name:       "char",
			NameCn:     "角色",
			Gender:     gender,
			Popularity: popularity,
		},
		CharacterAppearances: models.CharacterAppearances{
			Appearances:        []models.Appearance{},
			LatestAppearance:   -1,
			EarliestAppearance: -1,
			HighestRating:      -1,
			MetaTags:           []string{},
		},
	}
}

func TestPopularityFeedbackBands(t *testing.T) {
	tests := []struct {
		name   string
		guess  int
		answer int
		want   string
	}{
		{"unknown guess", 0, 500, "?"},
		{"unknown answer", 500, 0, "?"},
		{"exact", 500, 500, "="},
		{"close above", 540, 500, "+"},
		{"close below", 460, 500, "-"},
		{"far above", 800, 500, "++"},
		{"far below", 100, 500, "--"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, popularityFeedback(tt.guess, tt.answer))
		})
	}
}

func TestYearFeedbackBands(t *testing.T) {
	assert.Equal(t, "?", yearFeedback(2015, 0))
	assert.Equal(t, "=", yearFeedback(2015, 2015))
	assert.Equal(t, "+", yearFeedback(2017, 2015))
	assert.Equal(t, "-", yearFeedback(2013, 2015))
	assert.Equal(t, "++", yearFeedback(2020, 2015))
	assert.Equal(t, "--", yearFeedback(2010, 2015))
}

func TestRatingFeedbackBands(t *testing.T) {
	assert.Equal(t, "?", ratingFeedback(7.5, 0))
	assert.Equal(t, "?", ratingFeedback(-1, 7.5))
	assert.Equal(t, "=", ratingFeedback(7.55, 7.5))
	assert.Equal(t, "+", ratingFeedback(7.9, 7.5))
	assert.Equal(t, "-", ratingFeedback(7.1, 7.5))
	assert.Equal(t, "++", ratingFeedback(8.5, 7.5))
	assert.Equal(t, "--", ratingFeedback(6.0, 7.5))
}

func TestAppearancesCountFeedback(t *testing.T) {
	answer := character(1, "female", 100)
	answer.Appearances = []models.Appearance{
		{ID: 10, Name: "a", Year: 2020, Rating: 7.0},
		{ID: 11, Name: "b", Year: 2021, Rating: 7.5},
		{ID: 12, Name: "c", Year: 2022, Rating: 8.0},
		{ID: 13, Name: "d", Year: 2023, Rating: 6.5},
		{ID: 14, Name: "e", Year: 2024, Rating: 6.0},
	}

	assert.Equal(t, "=", appearancesCountFeedback(5, answer))
	assert.Equal(t, "+", appearancesCountFeedback(6, answer))
	assert.Equal(t, "-", appearancesCountFeedback(4, answer))
	assert.Equal(t, "++", appearancesCountFeedback(10, answer))
	assert.Equal(t, "--", appearancesCountFeedback(1, answer))

	noData := character(2, "female", 100)
	noData.Appearances = nil
	assert.Equal(t, "?", appearancesCountFeedback(3, noData))
}

func TestGenerateFeedbackSharedData(t *testing.T) {
	guess := character(1, "female", 400)
	guess.Appearances = []models.Appearance{
		{ID: 10, Name: "Shared Show", Year: 2020, Rating: 7.0},
		{ID: 99, Name: "Solo Show", Year: 2021, Rating: 6.0},
	}
	guess.MetaTags = []string{"School", "Comedy", "Original"}

	answer := character(2, "male", 500)
	answer.Appearances = []models.Appearance{
		{ID: 10, Name: "Shared Show", Year: 2020, Rating: 7.0},
		{ID: 20, Name: "Other Show", Year: 2018, Rating: 8.0},
	}
	answer.MetaTags = []string{"comedy", "school", "Drama"}

	fb := GenerateFeedback(guess, answer)
	assert.Equal(t, "no", fb.Gender)
	assert.Equal(t, 1, fb.SharedAppearances.Count)
	assert.Equal(t, "Shared Show", fb.SharedAppearances.First)
	// Tag matching is case-insensitive and keeps the guess's casing.
	assert.ElementsMatch(t, []string{"School", "Comedy"}, fb.SharedMetaTags)
}

func TestBuildGuessDataIdentityMatch(t *testing.T) {
	answer := character(7, "female", 300)
	answer.Appearances = []models.Appearance{{ID: 10, Name: "Show", Year: 2020, Rating: 7.0}}
	answer.MetaTags = []string{"School"}

	data := BuildGuessData(answer, answer)
	require.True(t, data.IsAnswer)
	assert.Equal(t, "yes", data.GenderFeedback)
	assert.Equal(t, "=", data.PopularityFeedback)
	assert.Equal(t, "=", data.RatingFeedback)
	assert.Equal(t, "Show", data.SharedAppearances.First)
	assert.Equal(t, 1, data.SharedAppearances.Count)
	assert.Equal(t, []string{"School"}, data.SharedMetaTags)
}

func TestBuildGuessDataZeroPopularityBecomesUnknown(t *testing.T) {
	guess := character(1, "female", 0)
	answer := character(2, "female", 300)
	data := BuildGuessData(guess, answer)
	assert.False(t, data.IsAnswer)
	assert.Equal(t, -1, data.Popularity)
	assert.Equal(t, "?", data.PopularityFeedback)
}

func TestGiveUpGuessSentinel(t *testing.T) {
	data := GiveUpGuess()
	assert.True(t, data.GaveUp)
	assert.False(t, data.IsAnswer)
	assert.Equal(t, -1, data.Popularity)
	assert.Equal(t, -1, data.LatestAppearance)
	assert.Equal(t, float64(-1), data.HighestRating)
}
