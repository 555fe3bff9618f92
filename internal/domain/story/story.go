// Package story provides the Story and Set domain entities.
package story

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Kind represents the media kind of a story.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether the kind is a known media kind.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// Story represents one unit of content in a set.
type Story struct {
	ID       string    // Story ID
	Kind     Kind      // Media kind
	MediaURL string    // Location of the media asset
	Caption  string    // Optional caption
	PostedAt time.Time // Time the story was posted
}

// Validate checks that the story is well-formed.
func (s Story) Validate() error {
	if s.ID == "" {
		return errors.New("story id is empty")
	}
	if !s.Kind.Valid() {
		return errors.Newf("story %s: unknown kind %q", s.ID, s.Kind)
	}
	if s.MediaURL == "" {
		return errors.Newf("story %s: media url is empty", s.ID)
	}
	return nil
}

// Set represents an ordered, fixed-size sequence of stories presented
// as one playback session.
type Set struct {
	ID        string    // Set ID (UUID)
	Title     string    // Display title
	Author    string    // Author display name
	Stories   []Story   // Ordered stories
	CreatedAt time.Time // Time the set was created
}

// Len returns the number of stories in the set.
func (s *Set) Len() int {
	return len(s.Stories)
}

// Validate checks that the set and all of its stories are well-formed.
func (s *Set) Validate() error {
	if s.ID == "" {
		return errors.New("set id is empty")
	}
	if len(s.Stories) == 0 {
		return errors.Newf("set %s: no stories", s.ID)
	}
	seen := make(map[string]struct{}, len(s.Stories))
	for _, st := range s.Stories {
		if err := st.Validate(); err != nil {
			return errors.Wrapf(err, "set %s", s.ID)
		}
		if _, ok := seen[st.ID]; ok {
			return errors.Newf("set %s: duplicate story id %s", s.ID, st.ID)
		}
		seen[st.ID] = struct{}{}
	}
	return nil
}

// Story returns the story at the given position, or false if out of range.
func (s *Set) Story(index int) (Story, bool) {
	if index < 0 || index >= len(s.Stories) {
		return Story{}, false
	}
	return s.Stories[index], true
}
