// internal/catalog/client.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/animeguessr/server/internal/cache"
	"github.com/animeguessr/server/internal/database"
	"github.com/animeguessr/server/internal/models"
)

const (
	defaultBaseURL = "https://api.bgm.tv/v0"
	userAgent      = "AnimeGuessr/1.0"

	animeType = 2
	gameType  = 4
)

// Characters whose voice-actor tags would give the answer away.
var vaTagExcludedCharacters = map[int]struct{}{
	56822: {}, 56823: {}, 17529: {}, 10956: {},
}

// Client talks to the Bangumi catalog. Responses are cached in Redis
// (cache-aside, best effort) and character meta tags are enriched from
// the tag store. Implements the room package's CharacterProvider.
type Client struct {
	baseURL string
	http    *http.Client
	tags    *database.TagStore
}

// NewClient builds a client from BANGUMI_API_URL (default api.bgm.tv/v0).
func NewClient(tags *database.TagStore) *Client {
	base := os.Getenv("BANGUMI_API_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tags:    tags,
	}
}

// Wire shapes, trimmed to the fields we read.

type wireImages struct {
	Grid   string `json:"grid"`
	Medium string `json:"medium"`
	Common string `json:"common"`
}

type wireInfoboxEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type wireTag struct {
	Name string `json:"name"`
}

type wireCharacter struct {
	ID      int                `json:"id"`
	Name    string             `json:"name"`
	Gender  string             `json:"gender"`
	Summary string             `json:"summary"`
	Images  wireImages         `json:"images"`
	Infobox []wireInfoboxEntry `json:"infobox"`
	Tags    []wireTag          `json:"tags"`
	Stat    struct {
		Collects int `json:"collects"`
	} `json:"stat"`
}

type wireSubject struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	NameCn   string     `json:"name_cn"`
	Type     int        `json:"type"`
	Date     string     `json:"date"`
	Images   wireImages `json:"images"`
	Tags     []wireTag  `json:"tags"`
	MetaTags []string   `json:"meta_tags"`
	Rating   struct {
		Score float64 `json:"score"`
		Total int     `json:"total"`
	} `json:"rating"`
}

type wireCharacterSubject struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Staff string `json:"staff"`
}

type wireCharacterPerson struct {
	Name        string `json:"name"`
	SubjectType int    `json:"subject_type"`
}

type wireSubjectCharacter struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Relation string     `json:"relation"`
	Images   wireImages `json:"images"`
}

// doJSON issues one catalog request and decodes the response into dest.
func (c *Client) doJSON(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// infoboxString extracts a string-valued infobox entry, ignoring the
// structured values some entries carry.
func infoboxString(entries []wireInfoboxEntry, key string) string {
	for _, e := range entries {
		if e.Key != key {
			continue
		}
		var s string
		if err := json.Unmarshal(e.Value, &s); err == nil {
			return s
		}
	}
	return ""
}

func (w wireCharacter) toCharacter() models.Character {
	tags := make([]string, 0, len(w.Tags))
	for _, t := range w.Tags {
		tags = append(tags, t.Name)
	}
	nameCn := infoboxString(w.Infobox, "简体中文名")
	if nameCn == "" {
		nameCn = w.Name
	}
	gender := w.Gender
	if gender == "" {
		gender = "?"
	}
	return models.Character{
		ID:         w.ID,
		Name:       w.Name,
		NameCn:     nameCn,
		Icon:       w.Images.Grid,
		Image:      w.Images.Medium,
		Gender:     gender,
		Popularity: w.Stat.Collects,
		Summary:    w.Summary,
		Tags:       tags,
	}
}

// CharacterDetails fetches one character by id.
func (c *Client) CharacterDetails(ctx context.Context, characterID int) (models.Character, error) {
	key := fmt.Sprintf("character:%d", characterID)
	var cached models.Character
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	var w wireCharacter
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/characters/%d", characterID), nil, &w); err != nil {
		return models.Character{}, err
	}
	character := w.toCharacter()
	cache.SetJSON(ctx, key, character, cache.CharacterTTL)
	return character, nil
}

// RandomCharacter picks a random answer candidate: a random subject from
// the heat-sorted search window (or the host's added subjects), then a
// random main or supporting character from it.
func (c *Client) RandomCharacter(ctx context.Context, settings models.GameSettings) (models.Character, error) {
	subjectID, err := c.randomSubjectID(ctx, settings)
	if err != nil {
		return models.Character{}, err
	}
	characters, err := c.subjectCharacterRoles(ctx, subjectID)
	if err != nil {
		return models.Character{}, err
	}

	var candidates []wireSubjectCharacter
	if settings.MainCharacterOnly {
		for _, sc := range characters {
			if sc.Relation == "主角" {
				candidates = append(candidates, sc)
			}
		}
	} else {
		for _, sc := range characters {
			if sc.Relation == "主角" || sc.Relation == "配角" {
				candidates = append(candidates, sc)
			}
			if len(candidates) >= settings.CharacterNum {
				break
			}
		}
	}
	if len(candidates) == 0 {
		return models.Character{}, fmt.Errorf("no eligible characters in subject %d", subjectID)
	}
	pick := candidates[rand.Intn(len(candidates))]
	return c.CharacterDetails(ctx, pick.ID)
}

// randomSubjectID chooses a subject uniformly from topNSubjects plus any
// host-added subjects.
func (c *Client) randomSubjectID(ctx context.Context, settings models.GameSettings) (int, error) {
	total := settings.TopNSubjects + len(settings.AddedSubjects)
	if total <= 0 {
		return 0, fmt.Errorf("no subject pool to draw from")
	}
	offset := rand.Intn(total)
	if offset >= settings.TopNSubjects {
		return settings.AddedSubjects[offset-settings.TopNSubjects].ID, nil
	}

	// Clamp the air-date window to today.
	end := time.Date(settings.EndYear+1, 1, 1, 0, 0, 0, 0, time.UTC)
	if now := time.Now().UTC(); end.After(now) {
		end = now
	}
	var metaTags []string
	for _, tag := range settings.MetaTags {
		if tag != "" {
			metaTags = append(metaTags, tag)
		}
	}
	body := map[string]interface{}{
		"sort": "heat",
		"filter": map[string]interface{}{
			"type":     []int{animeType},
			"air_date": []string{fmt.Sprintf(">=%d-01-01", settings.StartYear), "<" + end.Format("2006-01-02")},
		},
	}
	if len(metaTags) > 0 {
		body["filter"].(map[string]interface{})["meta_tags"] = metaTags
	}

	var page struct {
		Data []wireSubject `json:"data"`
	}
	path := fmt.Sprintf("/search/subjects?limit=1&offset=%d", offset)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &page); err != nil {
		return 0, err
	}
	if len(page.Data) == 0 {
		return 0, fmt.Errorf("no subject at search offset %d", offset)
	}
	return page.Data[0].ID, nil
}

// subjectCharacterRoles returns the raw cast list with relation roles.
func (c *Client) subjectCharacterRoles(ctx context.Context, subjectID int) ([]wireSubjectCharacter, error) {
	key := fmt.Sprintf("subjectchars:%d", subjectID)
	var cached []wireSubjectCharacter
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	var characters []wireSubjectCharacter
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/subjects/%d/characters", subjectID), nil, &characters); err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, key, characters, cache.AppearancesTTL)
	return characters, nil
}

// subjectDetail is the per-subject slice of data the appearance
// statistics need.
type subjectDetail struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"ratingCount"`
	Tags        []string `json:"tags"`
	MetaTags    []string `json:"metaTags"`
}

func (c *Client) subjectDetails(ctx context.Context, subjectID int) (subjectDetail, error) {
	key := fmt.Sprintf("subject:%d", subjectID)
	var cached subjectDetail
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	var w wireSubject
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/subjects/%d", subjectID), nil, &w); err != nil {
		return subjectDetail{}, err
	}

	// Community tags from the top of the list, minus the season tags
	// (anything containing "20").
	limit := 0
	switch w.Type {
	case animeType:
		limit = 10
	case gameType:
		limit = 5
	}
	var tags []string
	for _, t := range w.Tags {
		if len(tags) >= limit {
			break
		}
		if strings.Contains(t.Name, "20") {
			continue
		}
		tags = append(tags, t.Name)
	}

	detail := subjectDetail{
		Name:        w.Name,
		Rating:      w.Rating.Score,
		RatingCount: w.Rating.Total,
		Tags:        tags,
		MetaTags:    w.MetaTags,
	}
	if len(w.Date) >= 4 {
		if year, err := strconv.Atoi(w.Date[:4]); err == nil {
			detail.Year = year
		}
	}
	cache.SetJSON(ctx, key, detail, cache.SubjectTTL)
	return detail, nil
}

// CharacterAppearances computes the appearance statistics for one
// character under the given settings: which anime (and optionally games)
// they appear in as a main or supporting character, the year and rating
// spread, and the merged meta tag set.
func (c *Client) CharacterAppearances(ctx context.Context, characterID int, settings models.GameSettings) (models.CharacterAppearances, error) {
	empty := models.CharacterAppearances{
		Appearances:        []models.Appearance{},
		LatestAppearance:   -1,
		EarliestAppearance: -1,
		HighestRating:      -1,
		MetaTags:           []string{},
	}

	var subjects []wireCharacterSubject
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/characters/%d/subjects", characterID), nil, &subjects); err != nil {
		return models.CharacterAppearances{}, err
	}
	var persons []wireCharacterPerson
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/characters/%d/persons", characterID), nil, &persons); err != nil {
		return models.CharacterAppearances{}, err
	}

	var relevant []wireCharacterSubject
	for _, s := range subjects {
		if s.Staff != "主角" && s.Staff != "配角" {
			continue
		}
		if s.Type == animeType || (settings.IncludeGame && s.Type == gameType) {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) == 0 {
		return empty, nil
	}

	var requiredTags []string
	for _, tag := range settings.MetaTags {
		if tag != "" {
			requiredTags = append(requiredTags, tag)
		}
	}

	result := empty
	metaTags := map[string]struct{}{}
	bestRatingCount := -1
	var bestTags []string
	for _, s := range relevant {
		detail, err := c.subjectDetails(ctx, s.ID)
		if err != nil || detail.Year == 0 {
			continue
		}
		if !containsAll(detail.MetaTags, requiredTags) {
			continue
		}
		result.Appearances = append(result.Appearances, models.Appearance{
			ID:     s.ID,
			Name:   detail.Name,
			Year:   detail.Year,
			Rating: detail.Rating,
		})
		if result.LatestAppearance == -1 || detail.Year > result.LatestAppearance {
			result.LatestAppearance = detail.Year
		}
		if result.EarliestAppearance == -1 || detail.Year < result.EarliestAppearance {
			result.EarliestAppearance = detail.Year
		}
		if detail.Rating > result.HighestRating {
			result.HighestRating = detail.Rating
		}
		for _, tag := range detail.MetaTags {
			metaTags[tag] = struct{}{}
		}
		if detail.RatingCount > bestRatingCount {
			bestRatingCount = detail.RatingCount
			bestTags = detail.Tags
		}
	}
	if len(result.Appearances) == 0 {
		return empty, nil
	}
	sortAppearancesByRating(result.Appearances)

	// Tags from the most-rated appearance plus voice actors, unless the
	// character's cast would identify them trivially.
	for _, tag := range bestTags {
		metaTags[tag] = struct{}{}
	}
	if _, excluded := vaTagExcludedCharacters[characterID]; !excluded {
		for _, p := range persons {
			if p.SubjectType == animeType || p.SubjectType == gameType {
				metaTags[p.Name] = struct{}{}
			}
		}
	}
	if c.tags != nil {
		for _, tag := range c.tags.CharacterMetaTags(ctx, characterID) {
			metaTags[tag] = struct{}{}
		}
	}
	result.MetaTags = make([]string, 0, len(metaTags))
	for tag := range metaTags {
		result.MetaTags = append(result.MetaTags, tag)
	}
	return result, nil
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortAppearancesByRating(apps []models.Appearance) {
	for i := 1; i < len(apps); i++ {
		for j := i; j > 0 && apps[j].Rating > apps[j-1].Rating; j-- {
			apps[j], apps[j-1] = apps[j-1], apps[j]
		}
	}
}

// SearchCharacters proxies a keyword character search.
func (c *Client) SearchCharacters(ctx context.Context, keyword string, limit, offset int) ([]models.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("empty search keyword")
	}
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("search:characters:%s:%d:%d", keyword, limit, offset)
	var cached []models.SearchResult
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var page struct {
		Data []wireCharacter `json:"data"`
	}
	path := fmt.Sprintf("/search/characters?limit=%d&offset=%d", limit, offset)
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"keyword": keyword}, &page); err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(page.Data))
	for _, w := range page.Data {
		ch := w.toCharacter()
		results = append(results, models.SearchResult{
			ID:         ch.ID,
			Name:       ch.Name,
			NameCn:     ch.NameCn,
			Icon:       ch.Icon,
			Image:      ch.Image,
			Gender:     ch.Gender,
			Popularity: ch.Popularity,
		})
	}
	cache.SetJSON(ctx, key, results, cache.SearchTTL)
	return results, nil
}

// SearchSubjects proxies a keyword anime search.
func (c *Client) SearchSubjects(ctx context.Context, keyword string) ([]models.Subject, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("empty search keyword")
	}
	key := "search:subjects:" + keyword
	var cached []models.Subject
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var page struct {
		Data []wireSubject `json:"data"`
	}
	body := map[string]interface{}{
		"keyword": keyword,
		"filter":  map[string]interface{}{"type": []int{animeType}},
	}
	if err := c.doJSON(ctx, http.MethodPost, "/search/subjects?limit=25", body, &page); err != nil {
		return nil, err
	}
	results := make([]models.Subject, 0, len(page.Data))
	for _, w := range page.Data {
		nameCn := w.NameCn
		if nameCn == "" {
			nameCn = w.Name
		}
		results = append(results, models.Subject{
			ID:     w.ID,
			Name:   w.Name,
			NameCn: nameCn,
			Type:   subjectTypeName(w.Type),
			Image:  w.Images.Common,
		})
	}
	cache.SetJSON(ctx, key, results, cache.SearchTTL)
	return results, nil
}

func subjectTypeName(t int) string {
	switch t {
	case 1:
		return "书籍"
	case 2:
		return "动画"
	case 3:
		return "音乐"
	case 4:
		return "游戏"
	case 6:
		return "真人"
	default:
		return "其他"
	}
}

// SubjectCharacters lists a subject's cast as search results.
func (c *Client) SubjectCharacters(ctx context.Context, subjectID int) ([]models.SearchResult, error) {
	characters, err := c.subjectCharacterRoles(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(characters))
	for _, sc := range characters {
		if sc.ID == 0 || sc.Name == "" {
			continue
		}
		results = append(results, models.SearchResult{
			ID:   sc.ID,
			Name: sc.Name,
			Icon: sc.Images.Grid,
		})
	}
	return results, nil
}
