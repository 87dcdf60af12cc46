package form

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsLifecycle(t *testing.T) {
	e := newEnv(t)
	s := NewSessions(e.deps, time.Minute)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	id, st, err := s.Open(context.Background(), StartOptions{ModuleID: moduleID, CompanyID: "c1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, PhaseGeneral, st.Phase)
	assert.Equal(t, 1, s.Len())

	now = now.Add(50 * time.Second)
	c, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, moduleID, c.State().ModuleID)

	// Get продлил жизнь
	now = now.Add(50 * time.Second)
	_, err = s.Get(id)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestSessionsOpenFailureIsNotStored(t *testing.T) {
	s := NewSessions(newEnv(t).deps, 0)
	_, _, err := s.Open(context.Background(), StartOptions{ModuleID: "vehicles"})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Close("nope"), ErrSessionNotFound)
}

func TestSessionsSweepAndClose(t *testing.T) {
	e := newEnv(t)
	s := NewSessions(e.deps, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	a, _, err := s.Open(context.Background(), StartOptions{ModuleID: moduleID})
	require.NoError(t, err)
	b, _, err := s.Open(context.Background(), StartOptions{ModuleID: moduleID})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ctrl, err := s.Get(a)
	require.NoError(t, err)
	require.NoError(t, s.Close(a))
	assert.Equal(t, PhaseIdle, ctrl.State().Phase)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}
