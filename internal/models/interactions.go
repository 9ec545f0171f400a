package models

import (
	"time"
)

// Reaction keys honored by the interaction store
const (
	ReactionLikes    = "likes"
	ReactionHearts   = "hearts"
	ReactionLaughs   = "laughs"
	ReactionDislikes = "dislikes"
)

// ValidReactions defines the canonical reaction keys
var ValidReactions = map[string]bool{
	ReactionLikes:    true,
	ReactionHearts:   true,
	ReactionLaughs:   true,
	ReactionDislikes: true,
}

// ReactionCounts holds the four named reaction counters of an article
type ReactionCounts struct {
	Likes    int `json:"likes"`
	Hearts   int `json:"hearts"`
	Laughs   int `json:"laughs"`
	Dislikes int `json:"dislikes"`
}

// ArticleInteractions is the per-article aggregate of reactions and comments
type ArticleInteractions struct {
	ArticleID    string         `json:"articleId" db:"article_id"`
	Reactions    ReactionCounts `json:"reactions"`
	CommentCount int            `json:"commentCount" db:"comment_count"`
	LastUpdated  time.Time      `json:"lastUpdated" db:"last_updated"`
}

// ReactionCountsFromMap keeps only canonical keys and clamps every counter at zero.
func ReactionCountsFromMap(raw map[string]int) ReactionCounts {
	var counts ReactionCounts
	for key, value := range raw {
		if !ValidReactions[key] {
			continue
		}
		counts.Set(key, value)
	}
	return counts
}

// Get returns the counter for a reaction key, 0 for unknown keys
func (r ReactionCounts) Get(key string) int {
	switch key {
	case ReactionLikes:
		return r.Likes
	case ReactionHearts:
		return r.Hearts
	case ReactionLaughs:
		return r.Laughs
	case ReactionDislikes:
		return r.Dislikes
	}
	return 0
}

// Set assigns a counter, clamped to >= 0. Unknown keys are ignored.
func (r *ReactionCounts) Set(key string, value int) {
	if value < 0 {
		value = 0
	}
	switch key {
	case ReactionLikes:
		r.Likes = value
	case ReactionHearts:
		r.Hearts = value
	case ReactionLaughs:
		r.Laughs = value
	case ReactionDislikes:
		r.Dislikes = value
	}
}

// Clamped returns a copy with every counter floored at zero
func (r ReactionCounts) Clamped() ReactionCounts {
	out := r
	out.Set(ReactionLikes, r.Likes)
	out.Set(ReactionHearts, r.Hearts)
	out.Set(ReactionLaughs, r.Laughs)
	out.Set(ReactionDislikes, r.Dislikes)
	return out
}

// ReactionRequest is the typed body of POST/PUT /articles/:slug/reactions.
// Exactly one of Reactions or ReactionType must be present.
type ReactionRequest struct {
	Reactions    map[string]int `json:"reactions,omitempty"`
	ReactionType string         `json:"reactionType,omitempty"`
	Action       string         `json:"action,omitempty"` // add (default) or remove
}

// Reaction actions
const (
	ReactionActionAdd    = "add"
	ReactionActionRemove = "remove"
)
