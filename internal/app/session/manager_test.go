package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/storybox/internal/app/playback"
	"github.com/osa030/storybox/internal/domain/story"
	"github.com/osa030/storybox/internal/infra/config"
)

func testBase() config.PlaybackConfig {
	return config.PlaybackConfig{
		ItemDurationMs: 1000,
		TickPeriodMs:   5,
		SettleDelayMs:  10,
	}
}

func testSet(stories int) *story.Set {
	s := &story.Set{ID: "set-1", Title: "Test", Author: "kana"}
	for i := 0; i < stories; i++ {
		s.Stories = append(s.Stories, story.Story{
			ID:       string(rune('a' + i)),
			Kind:     story.KindImage,
			MediaURL: "file:///x.jpg",
		})
	}
	return s
}

func TestManager_OpenAndGet(t *testing.T) {
	m := NewManager(testBase())
	defer m.CloseAll()

	s, err := m.Open(testSet(3), config.SetOverrides{})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 3, s.Controller.ItemCount())
	assert.Equal(t, playback.StateIdle, s.Controller.State())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_OpenRejectsInvalidSet(t *testing.T) {
	m := NewManager(testBase())
	defer m.CloseAll()

	_, err := m.Open(&story.Set{ID: "bad"}, config.SetOverrides{})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestManager_Close(t *testing.T) {
	m := NewManager(testBase())

	s, err := m.Open(testSet(2), config.SetOverrides{})
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, 0, m.Count())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session pump did not drain")
	}

	assert.ErrorIs(t, m.Close(s.ID), ErrSessionNotFound)
}

func TestSession_WatchReceivesEvents(t *testing.T) {
	m := NewManager(testBase())
	defer m.CloseAll()

	s, err := m.Open(testSet(2), config.SetOverrides{})
	require.NoError(t, err)

	ch := make(chan playback.Event, 32)
	id := s.Watch(ch)
	defer s.Unwatch(id)

	s.Controller.Start()

	select {
	case e := <-ch:
		assert.Equal(t, playback.EventStateChanged, e.Type)
		assert.Equal(t, playback.StateEntering, e.State)
	case <-time.After(time.Second):
		t.Fatal("no event forwarded to watcher")
	}
}

func TestSession_CurrentStory(t *testing.T) {
	m := NewManager(testBase())
	defer m.CloseAll()

	s, err := m.Open(testSet(3), config.SetOverrides{})
	require.NoError(t, err)

	st, ok := s.CurrentStory()
	require.True(t, ok)
	assert.Equal(t, "a", st.ID)

	s.Controller.JumpToStory(2)
	st, ok = s.CurrentStory()
	require.True(t, ok)
	assert.Equal(t, "c", st.ID)
}

func TestManager_Overrides(t *testing.T) {
	m := NewManager(testBase())
	defer m.CloseAll()

	loop := true
	s, err := m.Open(testSet(2), config.SetOverrides{Loop: &loop})
	require.NoError(t, err)

	// With looping on, stepping past the last item wraps instead of dismissing.
	s.Controller.JumpToStory(1)
	s.Controller.NextStory()
	assert.Equal(t, 0, s.Controller.CurrentIndex())
	assert.NotEqual(t, playback.StateDismissing, s.Controller.State())
}
