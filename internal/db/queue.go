package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/abdulachik/subposter/internal/post"
)

// QueuedPost is a post waiting in the rotation used by queue schedules.
type QueuedPost struct {
	ID        string
	Candidate post.Candidate
	CreatedAt time.Time
}

// EnqueuePost adds c to the end of the queue and returns its ID.
func (s *Store) EnqueuePost(ctx context.Context, c post.Candidate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid queued post: %w", err)
	}

	options, err := json.Marshal(c.PollOptions)
	if err != nil {
		return "", fmt.Errorf("encode poll options: %w", err)
	}

	id := uuid.NewString()
	_, err = s.ExecContext(ctx, `
		INSERT INTO queued_posts (id, community, kind, title, body, url, image_path, poll_options, poll_duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, c.Community, string(c.Kind), c.Title, c.Body, c.URL, c.ImagePath, string(options), c.PollDuration)
	if err != nil {
		return "", fmt.Errorf("insert queued post: %w", err)
	}

	return id, nil
}

const queueColumns = `id, community, kind, title, body, url, image_path, poll_options, poll_duration, created_at`

func scanQueued(scan func(dest ...any) error) (QueuedPost, error) {
	var (
		q       QueuedPost
		kind    string
		options string
	)
	if err := scan(&q.ID, &q.Candidate.Community, &kind, &q.Candidate.Title, &q.Candidate.Body,
		&q.Candidate.URL, &q.Candidate.ImagePath, &options, &q.Candidate.PollDuration, &q.CreatedAt); err != nil {
		return QueuedPost{}, err
	}

	q.Candidate.Kind = post.Kind(kind)
	if err := json.Unmarshal([]byte(options), &q.Candidate.PollOptions); err != nil {
		return QueuedPost{}, fmt.Errorf("decode poll options of %s: %w", q.ID, err)
	}
	if len(q.Candidate.PollOptions) == 0 {
		q.Candidate.PollOptions = nil
	}

	return q, nil
}

// ListQueued returns every queued post in rotation order.
func (s *Store) ListQueued(ctx context.Context) ([]QueuedPost, error) {
	rows, err := s.QueryContext(ctx, "SELECT "+queueColumns+" FROM queued_posts ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query queued posts: %w", err)
	}
	defer rows.Close()

	var posts []QueuedPost
	for rows.Next() {
		q, err := scanQueued(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan queued post: %w", err)
		}
		posts = append(posts, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queued posts: %w", err)
	}

	return posts, nil
}

// CountQueued returns the queue length.
func (s *Store) CountQueued(ctx context.Context) (int64, error) {
	var n int64
	if err := s.QueryRowContext(ctx, "SELECT COUNT(*) FROM queued_posts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count queued posts: %w", err)
	}
	return n, nil
}

// RemoveQueued deletes a queued post.
func (s *Store) RemoveQueued(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, "DELETE FROM queued_posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete queued post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("queued post %s: %w", id, ErrNotFound)
	}
	return nil
}

// NextQueued advances the persisted rotation cursor and returns the post
// it lands on. It reports false when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (QueuedPost, bool, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return QueuedPost{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM queued_posts").Scan(&count); err != nil {
		return QueuedPost{}, false, fmt.Errorf("count queued posts: %w", err)
	}
	if count == 0 {
		return QueuedPost{}, false, nil
	}

	cursor := int64(-1)
	if raw, err := getSetting(ctx, tx, settingQueueCursor); err == nil {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cursor = v
		}
	}

	next := (cursor + 1) % count
	if next < 0 {
		next = 0
	}

	row := tx.QueryRowContext(ctx, "SELECT "+queueColumns+" FROM queued_posts ORDER BY seq LIMIT 1 OFFSET ?", next)
	q, err := scanQueued(row.Scan)
	if err == sql.ErrNoRows {
		return QueuedPost{}, false, nil
	}
	if err != nil {
		return QueuedPost{}, false, fmt.Errorf("scan queued post: %w", err)
	}

	if err := setSetting(ctx, tx, settingQueueCursor, strconv.FormatInt(next, 10)); err != nil {
		return QueuedPost{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return QueuedPost{}, false, fmt.Errorf("commit: %w", err)
	}

	return q, true, nil
}
