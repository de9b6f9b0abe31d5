// Package export writes search results to downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdulachik/subposter/internal/search"
)

var header = []string{"Title", "Subreddit", "URL", "Summary", "Post ID"}

// Exporter writes search results to a directory.
type Exporter interface {
	Export(results []search.Result) (string, error)
}

// CSV writes one CSV file per export.
type CSV struct {
	dir string
	now func() time.Time
}

// NewCSV creates an exporter writing into dir.
func NewCSV(dir string) *CSV {
	return &CSV{dir: dir, now: time.Now}
}

// Export writes results and returns the created file's path.
func (c *CSV) Export(results []search.Result) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := filepath.Join(c.dir, fmt.Sprintf("search_results_%s.csv", c.now().Format("20060102_150405")))
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	w := csv.NewWriter(f)
	records := make([][]string, 0, len(results)+1)
	records = append(records, header)
	for _, r := range results {
		records = append(records, []string{r.Title, r.Community, r.URL, r.Summary, r.PostID})
	}

	if err := w.WriteAll(records); err != nil {
		f.Close()
		return "", fmt.Errorf("write export: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}

	return name, nil
}
