// Package metadata records what a run downloaded in a metadata.json file
// next to the videos.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"dyscraper/pkg/models"

	"github.com/google/uuid"
)

// FileName is the metadata file written into the output directory.
const FileName = "metadata.json"

// VideoMetadata describes one downloaded video.
type VideoMetadata struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url"`
	PageURL  string `json:"page_url,omitempty"`
	Filename string `json:"filename"`
	Source   string `json:"source"`
	FileSize int64  `json:"file_size"`

	Author     string     `json:"author,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`

	DownloadedAt time.Time `json:"downloaded_at"`
}

// FromCandidate builds an entry for a candidate saved with size bytes.
func FromCandidate(c models.Candidate, size int64) VideoMetadata {
	m := VideoMetadata{
		ID:           c.ID,
		Title:        c.Title,
		URL:          c.URL,
		PageURL:      c.PageURL,
		Filename:     c.Filename,
		Source:       string(c.Source),
		FileSize:     size,
		Author:       c.Author,
		DurationMS:   c.DurationMS,
		DownloadedAt: time.Now(),
	}
	if !c.CreatedAt.IsZero() {
		t := c.CreatedAt
		m.CreatedAt = &t
	}
	return m
}

// GetFormattedTitle returns the title cut to maxRunes for display.
func (m VideoMetadata) GetFormattedTitle(maxRunes int) string {
	r := []rune(m.Title)
	if maxRunes <= 3 || len(r) <= maxRunes {
		return m.Title
	}
	return string(r[:maxRunes-3]) + "..."
}

// ProfileMetadata is the content of metadata.json.
type ProfileMetadata struct {
	RunID      string          `json:"run_id"`
	Profile    string          `json:"profile"`
	SecUserID  string          `json:"sec_user_id,omitempty"`
	Mode       string          `json:"mode"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Videos     []VideoMetadata `json:"videos"`
}

// Collector gathers entries during a run. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	meta   ProfileMetadata
	byFile map[string]int
}

// NewCollector starts collecting for one run with a fresh run id.
func NewCollector(profile, secUserID, mode string) *Collector {
	return &Collector{
		meta: ProfileMetadata{
			RunID:     uuid.NewString(),
			Profile:   profile,
			SecUserID: secUserID,
			Mode:      mode,
			StartedAt: time.Now(),
		},
		byFile: make(map[string]int),
	}
}

// RunID returns the id of this run.
func (c *Collector) RunID() string {
	return c.meta.RunID
}

// Add records v, replacing an earlier entry with the same filename.
func (c *Collector) Add(v VideoMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.byFile[v.Filename]; ok {
		c.meta.Videos[i] = v
		return
	}
	c.byFile[v.Filename] = len(c.meta.Videos)
	c.meta.Videos = append(c.meta.Videos, v)
}

// Remove forgets the entry for filename, for example after a smaller
// rendition was deleted.
func (c *Collector) Remove(filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byFile[filename]; !ok {
		return
	}
	videos := c.meta.Videos[:0]
	for _, v := range c.meta.Videos {
		if v.Filename != filename {
			videos = append(videos, v)
		}
	}
	c.meta.Videos = videos
	c.reindex()
}

func (c *Collector) reindex() {
	c.byFile = make(map[string]int, len(c.meta.Videos))
	for i, v := range c.meta.Videos {
		c.byFile[v.Filename] = i
	}
}

// Len reports how many entries were collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.meta.Videos)
}

// Snapshot returns a copy of the collected metadata.
func (c *Collector) Snapshot() ProfileMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.meta
	out.Videos = append([]VideoMetadata(nil), c.meta.Videos...)
	return out
}

// Write merges the collected entries into dir/metadata.json. Entries from
// earlier runs are kept unless this run wrote a file with the same name.
func (c *Collector) Write(dir string) error {
	c.mu.Lock()
	c.meta.FinishedAt = time.Now()
	c.mu.Unlock()
	snap := c.Snapshot()

	existing, err := Load(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if existing != nil {
		seen := make(map[string]bool, len(snap.Videos))
		for _, v := range snap.Videos {
			seen[v.Filename] = true
		}
		var merged []VideoMetadata
		for _, v := range existing.Videos {
			if !seen[v.Filename] {
				merged = append(merged, v)
			}
		}
		snap.Videos = append(merged, snap.Videos...)
	}
	sort.SliceStable(snap.Videos, func(i, j int) bool {
		return snap.Videos[i].Filename < snap.Videos[j].Filename
	})
	return Save(dir, &snap)
}

// Save writes meta to dir/metadata.json atomically.
func Save(dir string, meta *ProfileMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

// Load reads dir/metadata.json. The returned error satisfies
// os.IsNotExist when there is no file yet.
func Load(dir string) (*ProfileMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}

	var meta ProfileMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// PruneMissing drops entries whose video file no longer exists in dir and
// returns how many were removed.
func PruneMissing(dir string) (int, error) {
	meta, err := Load(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	kept := meta.Videos[:0]
	removed := 0
	for _, v := range meta.Videos {
		if _, err := os.Stat(filepath.Join(dir, v.Filename)); os.IsNotExist(err) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	if removed == 0 {
		return 0, nil
	}
	meta.Videos = kept
	return removed, Save(dir, meta)
}
