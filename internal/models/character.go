// internal/models/character.go
package models

// Character is the public shape of a catalog character as served to clients.
type Character struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	NameCn     string   `json:"nameCn"`
	Icon       string   `json:"icon"`
	Image      string   `json:"image"`
	Gender     string   `json:"gender"`
	Popularity int      `json:"popularity,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Appearance is one anime (or game) a character shows up in.
type Appearance struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Year   int     `json:"year"`
	Rating float64 `json:"rating"`
}

// CharacterAppearances holds the computed appearance statistics used for
// guess feedback. Unknown statistics are -1.
type CharacterAppearances struct {
	Appearances        []Appearance `json:"appearances"`
	LatestAppearance   int          `json:"latestAppearance"`
	EarliestAppearance int          `json:"earliestAppearance"`
	HighestRating      float64      `json:"highestRating"`
	MetaTags           []string     `json:"metaTags"`
}

// CharacterWithAppearances combines a character with its appearance stats.
// A room's secret answer is stored in this form.
type CharacterWithAppearances struct {
	Character
	CharacterAppearances
}

// SharedAppearances summarizes the overlap between a guess and the answer.
type SharedAppearances struct {
	First string `json:"first"`
	Count int    `json:"count"`
}

// GuessData is the per-guess record kept in a player's round history and
// broadcast with playerGuessed events. Feedback symbols: "=" exact,
// "+"/"-" close above/below, "++"/"--" far above/below, "?" unknown.
type GuessData struct {
	Icon                       string            `json:"icon"`
	Name                       string            `json:"name"`
	NameCn                     string            `json:"nameCn"`
	Gender                     string            `json:"gender"`
	GenderFeedback             string            `json:"genderFeedback"`
	LatestAppearance           int               `json:"latestAppearance"`
	LatestAppearanceFeedback   string            `json:"latestAppearanceFeedback"`
	EarliestAppearance         int               `json:"earliestAppearance"`
	EarliestAppearanceFeedback string            `json:"earliestAppearanceFeedback"`
	HighestRating              float64           `json:"highestRating"`
	RatingFeedback             string            `json:"ratingFeedback"`
	AppearancesCount           int               `json:"appearancesCount"`
	AppearancesCountFeedback   string            `json:"appearancesCountFeedback"`
	Popularity                 int               `json:"popularity"`
	PopularityFeedback         string            `json:"popularityFeedback"`
	SharedAppearances          SharedAppearances `json:"sharedAppearances"`
	MetaTags                   []string          `json:"metaTags"`
	SharedMetaTags             []string          `json:"sharedMetaTags"`
	IsAnswer                   bool              `json:"isAnswer"`
	GaveUp                     bool              `json:"gaveUp,omitempty"`
}

// Subject is an anime/manga/game entry from the catalog.
type Subject struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameCn string `json:"name_cn"`
	Type   string `json:"type"`
	Image  string `json:"image,omitempty"`
}

// SearchResult is a slim character representation for search listings.
type SearchResult struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NameCn     string `json:"nameCn"`
	Icon       string `json:"icon"`
	Image      string `json:"image"`
	Gender     string `json:"gender"`
	Popularity int    `json:"popularity,omitempty"`
}
