package metadata

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dyscraper/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id, file string) models.Candidate {
	return models.Candidate{
		ID:        id,
		Title:     "title " + id,
		URL:       "https://v.douyinvod.com/" + id + ".mp4",
		Filename:  file,
		Source:    models.SourceAPI,
		Author:    "someone",
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestFromCandidate(t *testing.T) {
	m := FromCandidate(candidate("1", "1_a.mp4"), 1024)
	assert.Equal(t, "1", m.ID)
	assert.Equal(t, "api", m.Source)
	assert.Equal(t, int64(1024), m.FileSize)
	require.NotNil(t, m.CreatedAt)
	assert.Equal(t, int64(1700000000), m.CreatedAt.Unix())
	assert.False(t, m.DownloadedAt.IsZero())

	bare := FromCandidate(models.Candidate{URL: "u", Filename: "f.mp4"}, 1)
	assert.Nil(t, bare.CreatedAt)
}

func TestCollectorAddReplaceRemove(t *testing.T) {
	c := NewCollector("https://www.douyin.com/user/x", "x", "api")
	_, err := uuid.Parse(c.RunID())
	require.NoError(t, err)

	c.Add(FromCandidate(candidate("1", "a.mp4"), 1))
	c.Add(FromCandidate(candidate("2", "b.mp4"), 2))
	c.Add(FromCandidate(candidate("3", "a.mp4"), 3))
	assert.Equal(t, 2, c.Len())

	snap := c.Snapshot()
	assert.Equal(t, "3", snap.Videos[0].ID)

	c.Remove("a.mp4")
	c.Remove("missing.mp4")
	snap = c.Snapshot()
	require.Len(t, snap.Videos, 1)
	assert.Equal(t, "b.mp4", snap.Videos[0].Filename)

	c.Add(FromCandidate(candidate("4", "c.mp4"), 4))
	c.Add(FromCandidate(candidate("5", "c.mp4"), 5))
	assert.Equal(t, 2, c.Len())
}

func TestCollectorConcurrentAdd(t *testing.T) {
	c := NewCollector("p", "", "hover")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(VideoMetadata{Filename: filepath.Base(t.Name()) + string(rune('a'+i)) + ".mp4"})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}

func TestWriteMergesWithExisting(t *testing.T) {
	dir := t.TempDir()

	first := NewCollector("p", "x", "api")
	first.Add(FromCandidate(candidate("1", "a.mp4"), 1))
	first.Add(FromCandidate(candidate("2", "b.mp4"), 2))
	require.NoError(t, first.Write(dir))

	second := NewCollector("p", "x", "page")
	second.Add(FromCandidate(candidate("9", "b.mp4"), 9))
	second.Add(FromCandidate(candidate("3", "c.mp4"), 3))
	require.NoError(t, second.Write(dir))

	meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, second.RunID(), meta.RunID)
	assert.Equal(t, "page", meta.Mode)
	require.Len(t, meta.Videos, 3)
	assert.Equal(t, "a.mp4", meta.Videos[0].Filename)
	assert.Equal(t, "b.mp4", meta.Videos[1].Filename)
	assert.Equal(t, int64(9), meta.Videos[1].FileSize)
	assert.Equal(t, "c.mp4", meta.Videos[2].Filename)
	assert.False(t, meta.FinishedAt.Before(meta.StartedAt))

	_, err = os.Stat(filepath.Join(dir, FileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, os.IsNotExist(err))
}

func TestPruneMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.mp4"), []byte("x"), 0644))

	c := NewCollector("p", "", "api")
	c.Add(VideoMetadata{Filename: "keep.mp4"})
	c.Add(VideoMetadata{Filename: "gone.mp4"})
	require.NoError(t, c.Write(dir))

	n, err := PruneMissing(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	meta, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, meta.Videos, 1)
	assert.Equal(t, "keep.mp4", meta.Videos[0].Filename)

	n, err = PruneMissing(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetFormattedTitle(t *testing.T) {
	m := VideoMetadata{Title: "日落时分的海边散步"}
	assert.Equal(t, "日落时分...", m.GetFormattedTitle(7))
	assert.Equal(t, m.Title, m.GetFormattedTitle(50))
}
