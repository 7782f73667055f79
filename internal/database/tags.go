// internal/database/tags.go
package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// TagStore reads curated character meta tags and queues player-proposed
// ones for moderation. Both tables are optional infrastructure; without
// a database the store returns empty results and rejects proposals.
type TagStore struct{}

// NewTagStore returns a store backed by the global pool.
func NewTagStore() *TagStore {
	return &TagStore{}
}

// CharacterMetaTags returns the curated tags for a character, or nil
// when there is no database or no row.
func (s *TagStore) CharacterMetaTags(ctx context.Context, characterID int) []string {
	if DB == nil {
		return nil
	}
	rows, err := DB.Query(ctx,
		`SELECT tag FROM character_tags WHERE character_id = $1 ORDER BY tag`,
		characterID)
	if err != nil {
		logrus.Warnf("query character_tags for %d: %v", characterID, err)
		return nil
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			logrus.Warnf("scan character_tags row: %v", err)
			return tags
		}
		tags = append(tags, tag)
	}
	return tags
}

// SubmitTags records tags chosen from the curated vocabulary.
func (s *TagStore) SubmitTags(ctx context.Context, characterID int, tags []string) error {
	return s.insertProposals(ctx, characterID, tags, "curated")
}

// ProposeTags queues free-form player tags for moderation.
func (s *TagStore) ProposeTags(ctx context.Context, characterID int, tags []string) error {
	return s.insertProposals(ctx, characterID, tags, "custom")
}

func (s *TagStore) insertProposals(ctx context.Context, characterID int, tags []string, kind string) error {
	if DB == nil {
		return fmt.Errorf("tag storage unavailable")
	}
	for _, tag := range tags {
		if _, err := DB.Exec(ctx,
			`INSERT INTO tag_proposals (character_id, tag, kind) VALUES ($1, $2, $3)`,
			characterID, tag, kind); err != nil {
			return fmt.Errorf("insert tag proposal %q for %d: %w", tag, characterID, err)
		}
	}
	return nil
}
