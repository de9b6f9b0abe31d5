package db

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulachik/subposter/internal/post"
)

// RecordPublication stores a successful publication. Duplicate post IDs
// are ignored.
func (s *Store) RecordPublication(ctx context.Context, p post.Publication) error {
	publishedAt := p.CreatedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}

	_, err := s.ExecContext(ctx, `
		INSERT OR IGNORE INTO publications (post_id, community, kind, title, username, url, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.PostID, p.Community, string(p.Kind), p.Title, p.Username, p.URL, publishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// CountPublications returns the number of recorded publications.
func (s *Store) CountPublications(ctx context.Context) (int64, error) {
	var n int64
	if err := s.QueryRowContext(ctx, "SELECT COUNT(*) FROM publications").Scan(&n); err != nil {
		return 0, fmt.Errorf("count publications: %w", err)
	}
	return n, nil
}

// CountPublicationsSince returns the number of publications at or after t.
func (s *Store) CountPublicationsSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := s.QueryRowContext(ctx, "SELECT COUNT(*) FROM publications WHERE published_at >= ?", t.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count publications: %w", err)
	}
	return n, nil
}

// CommunityCount is the number of publications in one community.
type CommunityCount struct {
	Community string
	Count     int64
}

// PublicationsByCommunity returns per-community publication counts, busiest
// first.
func (s *Store) PublicationsByCommunity(ctx context.Context) ([]CommunityCount, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT community, COUNT(*) AS n FROM publications
		GROUP BY community ORDER BY n DESC, community
	`)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var counts []CommunityCount
	for rows.Next() {
		var c CommunityCount
		if err := rows.Scan(&c.Community, &c.Count); err != nil {
			return nil, fmt.Errorf("scan publication count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// RecentPublications returns the latest publications, newest first.
func (s *Store) RecentPublications(ctx context.Context, limit int) ([]post.Publication, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT post_id, community, kind, title, username, url, published_at
		FROM publications ORDER BY published_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var pubs []post.Publication
	for rows.Next() {
		var (
			p    post.Publication
			kind string
		)
		if err := rows.Scan(&p.PostID, &p.Community, &kind, &p.Title, &p.Username, &p.URL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		p.Kind = post.Kind(kind)
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}
