// Package policy models per-community posting constraints and infers them
// from a community's live metadata.
package policy

import "strings"

// Policy is the set of constraints a community imposes on posts.
type Policy struct {
	RequiresDisclaimer bool   `yaml:"requires_disclaimer" json:"requires_disclaimer"`
	TagRequired        bool   `yaml:"tag_required" json:"tag_required"`
	DefaultTag         string `yaml:"default_tag" json:"default_tag,omitempty"`
	MinBodyLength      int    `yaml:"min_body_length" json:"min_body_length"`
	TextPostsAllowed   bool   `yaml:"text_posts_allowed" json:"text_posts_allowed"`
}

// Default returns the conservative policy used when nothing is known.
func Default() Policy {
	return Policy{TextPostsAllowed: true}
}

// Normalize canonicalizes a community name for use as a store key.
func Normalize(community string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(community), "r/"))
}

// Seeds returns the built-in policies for communities we already know.
func Seeds() map[string]Policy {
	return map[string]Policy{
		"startups": {
			RequiresDisclaimer: true,
			TagRequired:        true,
			DefaultTag:         "I will not promote",
			MinBodyLength:      250,
			TextPostsAllowed:   true,
		},
		"freelance": {TextPostsAllowed: true},
		"ycombinator": {
			RequiresDisclaimer: true,
			TextPostsAllowed:   true,
		},
		"technology": {
			RequiresDisclaimer: true,
			TagRequired:        true,
			DefaultTag:         "Software",
			TextPostsAllowed:   false,
		},
		"redditdev": {TextPostsAllowed: true},
		"test":      {TextPostsAllowed: true},
	}
}
