package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/storybox/internal/domain/story"
)

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleSet(title string) *story.Set {
	return &story.Set{
		Title:  title,
		Author: "kana",
		Stories: []story.Story{
			{ID: "s1", Kind: story.KindImage, MediaURL: "file:///a.jpg", Caption: "first", PostedAt: time.Now()},
			{ID: "s2", Kind: story.KindVideo, MediaURL: "file:///b.mp4", PostedAt: time.Now()},
			{ID: "s3", Kind: story.KindImage, MediaURL: "file:///c.jpg", PostedAt: time.Now()},
		},
	}
}

func TestLibrary_SaveAndGet(t *testing.T) {
	l := openTestLibrary(t)

	set := sampleSet("Vacation")
	require.NoError(t, l.SaveSet(set))
	assert.NotEmpty(t, set.ID, "SaveSet assigns an ID")

	loaded, err := l.GetSet(set.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vacation", loaded.Title)
	assert.Equal(t, "kana", loaded.Author)
	require.Len(t, loaded.Stories, 3)

	// Position order is preserved.
	assert.Equal(t, "s1", loaded.Stories[0].ID)
	assert.Equal(t, "s2", loaded.Stories[1].ID)
	assert.Equal(t, "s3", loaded.Stories[2].ID)
	assert.Equal(t, story.KindVideo, loaded.Stories[1].Kind)
	assert.Equal(t, "first", loaded.Stories[0].Caption)
}

func TestLibrary_SaveReplacesStories(t *testing.T) {
	l := openTestLibrary(t)

	set := sampleSet("Run")
	require.NoError(t, l.SaveSet(set))

	set.Stories = set.Stories[:1]
	require.NoError(t, l.SaveSet(set))

	loaded, err := l.GetSet(set.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Stories, 1)
}

func TestLibrary_SaveRejectsInvalidSet(t *testing.T) {
	l := openTestLibrary(t)

	err := l.SaveSet(&story.Set{Title: "Empty"})
	assert.Error(t, err)
}

func TestLibrary_GetMissing(t *testing.T) {
	l := openTestLibrary(t)

	_, err := l.GetSet("nope")
	assert.ErrorIs(t, err, ErrSetNotFound)
}

func TestLibrary_ListSets(t *testing.T) {
	l := openTestLibrary(t)

	a := sampleSet("A")
	a.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, l.SaveSet(a))
	require.NoError(t, l.SaveSet(sampleSet("B")))

	sets, err := l.ListSets()
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "B", sets[0].Title, "newest first")
	assert.Equal(t, "A", sets[1].Title)
	assert.Equal(t, 3, sets[0].StoryCount)
}

func TestLibrary_DeleteSet(t *testing.T) {
	l := openTestLibrary(t)

	set := sampleSet("Gone")
	require.NoError(t, l.SaveSet(set))
	require.NoError(t, l.DeleteSet(set.ID))

	_, err := l.GetSet(set.ID)
	assert.ErrorIs(t, err, ErrSetNotFound)

	assert.ErrorIs(t, l.DeleteSet(set.ID), ErrSetNotFound)
}
