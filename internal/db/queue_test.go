package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/post"
)

func enqueue(t *testing.T, s *Store, c post.Candidate) string {
	t.Helper()
	id, err := s.EnqueuePost(context.Background(), c)
	require.NoError(t, err)
	return id
}

func TestStore_EnqueuePost(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	id := enqueue(t, store, post.Candidate{
		Community:    "golang",
		Kind:         post.KindPoll,
		Title:        "Favourite release?",
		PollOptions:  []string{"1.21", "1.22"},
		PollDuration: 3,
	})
	assert.NotEmpty(t, id)

	posts, err := store.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, id, posts[0].ID)
	assert.Equal(t, []string{"1.21", "1.22"}, posts[0].Candidate.PollOptions)
	assert.Equal(t, 3, posts[0].Candidate.PollDuration)
	assert.Equal(t, post.KindPoll, posts[0].Candidate.Kind)

	_, err = store.EnqueuePost(ctx, post.Candidate{Community: "golang", Kind: post.KindLink, Title: "no url"})
	assert.Error(t, err)
}

func TestStore_NextQueued(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	_, ok, err := store.NextQueued(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	enqueue(t, store, post.Candidate{Community: "a", Kind: post.KindText, Title: "first"})
	enqueue(t, store, post.Candidate{Community: "b", Kind: post.KindText, Title: "second"})
	enqueue(t, store, post.Candidate{Community: "c", Kind: post.KindText, Title: "third"})

	var titles []string
	for range 4 {
		q, ok, err := store.NextQueued(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		titles = append(titles, q.Candidate.Title)
	}
	assert.Equal(t, []string{"first", "second", "third", "first"}, titles)

	cursor, err := store.GetSetting(ctx, "queue_cursor")
	require.NoError(t, err)
	assert.Equal(t, "0", cursor)
}

func TestStore_NextQueuedAfterRemoval(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	enqueue(t, store, post.Candidate{Community: "a", Kind: post.KindText, Title: "first"})
	second := enqueue(t, store, post.Candidate{Community: "b", Kind: post.KindText, Title: "second"})

	require.NoError(t, store.SetSetting(ctx, "queue_cursor", "0"))
	require.NoError(t, store.RemoveQueued(ctx, second))

	q, ok, err := store.NextQueued(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", q.Candidate.Title)

	assert.ErrorIs(t, store.RemoveQueued(ctx, second), ErrNotFound)
}

func TestStore_Publications(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pubs := []post.Publication{
		{PostID: "p1", Community: "golang", Kind: post.KindText, Title: "one", Username: "alice", CreatedAt: now.Add(-48 * time.Hour)},
		{PostID: "p2", Community: "golang", Kind: post.KindLink, Title: "two", Username: "bob", CreatedAt: now.Add(-time.Hour)},
		{PostID: "p3", Community: "rust", Kind: post.KindText, Title: "three", Username: "alice", CreatedAt: now},
	}
	for _, p := range pubs {
		require.NoError(t, store.RecordPublication(ctx, p))
	}
	// Duplicate post IDs are ignored.
	require.NoError(t, store.RecordPublication(ctx, pubs[0]))

	total, err := store.CountPublications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	recent, err := store.CountPublicationsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), recent)

	counts, err := store.PublicationsByCommunity(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CommunityCount{{Community: "golang", Count: 2}, {Community: "rust", Count: 1}}, counts)

	latest, err := store.RecentPublications(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "p3", latest[0].PostID)
	assert.Equal(t, "p2", latest[1].PostID)
	assert.Equal(t, post.KindLink, latest[1].Kind)
}
