package models

import (
	"regexp"
	"time"
)

type Comment struct {
	ID        string    `db:"id"`
	TaskID    string    `db:"task_id"`
	AuthorID  string    `db:"author_id"`
	Content   string    `db:"content"`
	ParentID  *string   `db:"parent_id"`
	IsEdited  bool      `db:"is_edited"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	MentionIDs []string `db:"-"`
}

func (Comment) TableName() string { return "comments" }

type CommentMention struct {
	CommentID string `db:"comment_id"`
	UserID    string `db:"user_id"`
}

func (CommentMention) TableName() string { return "comment_mentions" }

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the distinct @name tokens in content, in order of
// first appearance.
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
