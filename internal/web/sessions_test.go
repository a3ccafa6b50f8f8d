package web

import (
	"context"
	"testing"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyController() *changelog.Controller {
	return changelog.NewController(changelog.PageSourceFunc(func(context.Context, int) ([]domain.RawRecord, error) {
		return nil, nil
	}), changelog.Options{})
}

func TestSessionsGetChecksSourceAndRefreshes(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }

	ctrl := emptyController()
	id := s.Create("desktop", ctrl)
	require.NotEmpty(t, id)

	got, ok := s.Get(id, "desktop")
	require.True(t, ok)
	assert.Same(t, ctrl, got)

	_, ok = s.Get(id, "other")
	assert.False(t, ok, "session must stay bound to its source")

	now = now.Add(50 * time.Second)
	_, ok = s.Get(id, "desktop")
	require.True(t, ok)

	now = now.Add(50 * time.Second)
	assert.Equal(t, 0, s.Sweep(), "access should have refreshed the idle timer")
}

func TestSessionsExpireAndCloseController(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }

	ctrl := emptyController()
	id := s.Create("desktop", ctrl)
	s.Create("desktop", emptyController())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 0, s.Len())

	_, ok := s.Get(id, "desktop")
	assert.False(t, ok)

	_, err := ctrl.LoadNext(context.Background())
	assert.ErrorIs(t, err, changelog.ErrClosed)
}

func TestSessionsGetDropsExpiredEntry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }

	id := s.Create("desktop", emptyController())
	now = now.Add(time.Hour)

	_, ok := s.Get(id, "desktop")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSessionsCloseAll(t *testing.T) {
	s := NewSessions(0)
	ctrl := emptyController()
	s.Create("desktop", ctrl)

	s.CloseAll()
	assert.Equal(t, 0, s.Len())
	_, err := ctrl.LoadNext(context.Background())
	assert.ErrorIs(t, err, changelog.ErrClosed)
}
