package changelog

import (
	"fmt"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

// State is the pagination state of a Controller.
type State int

const (
	AwaitingFirstPage State = iota
	Loading
	IdleHasMore
	Exhausted
)

func (s State) String() string {
	switch s {
	case AwaitingFirstPage:
		return "awaiting_first_page"
	case Loading:
		return "loading"
	case IdleHasMore:
		return "idle_has_more"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{AwaitingFirstPage, Loading, IdleHasMore, Exhausted} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown feed state %q", text)
}

// FeedState is the accumulated result of one browsing session.
// LastLabel is the label of the last record in Records that has one.
type FeedState struct {
	Records   []domain.DisplayRecord `json:"records"`
	LastLabel string                 `json:"last_label"`
	HasMore   bool                   `json:"has_more"`
	NextPage  int                    `json:"next_page"`
	State     State                  `json:"state"`
}

func newFeedState(firstPage int) FeedState {
	return FeedState{
		HasMore:  true,
		NextPage: firstPage,
		State:    AwaitingFirstPage,
	}
}

func (f FeedState) clone() FeedState {
	f.Records = append([]domain.DisplayRecord(nil), f.Records...)
	return f
}
