// internal/handlers/catalog.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/animeguessr/server/internal/models"
)

// RandomCharacter draws a random answer candidate for single-player
// games, using the settings posted by the client.
func (s *Server) RandomCharacter(w http.ResponseWriter, r *http.Request) {
	var settings models.GameSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settings"})
		return
	}
	character, err := s.Catalog.RandomCharacter(r.Context(), settings)
	if err != nil {
		s.Logger.Warnf("random character: %v", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get random character"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"character": character})
}

// CharacterDetails returns one character by id.
func (s *Server) CharacterDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid character id"})
		return
	}
	character, err := s.Catalog.CharacterDetails(r.Context(), id)
	if err != nil {
		s.Logger.Warnf("character details %d: %v", id, err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get character details"})
		return
	}
	s.writeJSON(w, http.StatusOK, character)
}

// CharacterAppearances computes a character's appearance statistics
// under the posted settings.
func (s *Server) CharacterAppearances(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid character id"})
		return
	}
	var settings models.GameSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settings"})
		return
	}
	appearances, err := s.Catalog.CharacterAppearances(r.Context(), id, settings)
	if err != nil {
		s.Logger.Warnf("character appearances %d: %v", id, err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get character appearances"})
		return
	}
	s.writeJSON(w, http.StatusOK, appearances)
}

type searchCharactersRequest struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// SearchCharacters proxies a keyword character search.
func (s *Server) SearchCharacters(w http.ResponseWriter, r *http.Request) {
	var req searchCharactersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Keyword == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid keyword"})
		return
	}
	results, err := s.Catalog.SearchCharacters(r.Context(), req.Keyword, req.Limit, req.Offset)
	if err != nil {
		s.Logger.Warnf("search characters %q: %v", req.Keyword, err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to search characters"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type searchSubjectsRequest struct {
	Keyword string `json:"keyword"`
}

// SearchSubjects proxies a keyword anime search.
func (s *Server) SearchSubjects(w http.ResponseWriter, r *http.Request) {
	var req searchSubjectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Keyword == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid keyword"})
		return
	}
	results, err := s.Catalog.SearchSubjects(r.Context(), req.Keyword)
	if err != nil {
		s.Logger.Warnf("search subjects %q: %v", req.Keyword, err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to search subjects"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// SubjectCharacters lists a subject's cast.
func (s *Server) SubjectCharacters(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	characters, err := s.Catalog.SubjectCharacters(r.Context(), id)
	if err != nil {
		s.Logger.Warnf("subject characters %d: %v", id, err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get characters"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"characters": characters})
}

type tagsRequest struct {
	CharacterID int      `json:"characterId"`
	Tags        []string `json:"tags"`
}

// SubmitCharacterTags records tags picked from the curated vocabulary.
// Tags up to 15 characters.
func (s *Server) SubmitCharacterTags(w http.ResponseWriter, r *http.Request) {
	s.handleTags(w, r, 15, s.Tags.SubmitTags)
}

// ProposeCharacterTags queues free-form tags for moderation. Tags up to
// 8 characters.
func (s *Server) ProposeCharacterTags(w http.ResponseWriter, r *http.Request) {
	s.handleTags(w, r, 8, s.Tags.ProposeTags)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request, maxLen int, store func(ctx context.Context, characterID int, tags []string) error) {
	var req tagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CharacterID <= 0 || len(req.Tags) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request parameters"})
		return
	}
	for _, tag := range req.Tags {
		if n := utf8.RuneCountInString(tag); n < 1 || n > maxLen {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tag format"})
			return
		}
	}
	if err := store(r.Context(), req.CharacterID, req.Tags); err != nil {
		s.Logger.Warnf("store tags for character %d: %v", req.CharacterID, err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store tags"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Tags submitted successfully",
	})
}
