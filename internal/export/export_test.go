package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/search"
)

func TestCSV_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := NewCSV(dir)
	e.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	name, err := e.Export([]search.Result{
		{Title: "Agents, explained", Community: "startups", URL: "https://x", Summary: "short", PostID: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "search_results_20240301_093000.csv"), name)

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Title", "Subreddit", "URL", "Summary", "Post ID"},
		{"Agents, explained", "startups", "https://x", "short", "p1"},
	}, records)
}

func TestCSV_ExportEmpty(t *testing.T) {
	name, err := NewCSV(t.TempDir()).Export(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "Title,Subreddit,URL,Summary,Post ID\n", string(data))
}
