package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purenote/purenote/pkg/statemachine"
)

func TestMachine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("basic transition", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("draft")
		require.NoError(t, m.AddTransition("draft", "published", "publish", nil, nil))

		assert.Equal(t, "draft", m.Current())
		assert.True(t, m.CanFire(ctx, "publish", nil))
		require.NoError(t, m.Fire(ctx, "publish", nil))
		assert.Equal(t, "published", m.Current())
	})

	t.Run("no transition available", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("draft")
		err := m.Fire(ctx, "publish", nil)
		assert.ErrorIs(t, err, statemachine.ErrNoTransition)
		assert.Equal(t, "draft", m.Current())
	})

	t.Run("wildcard source state", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("a")
		require.NoError(t, m.AddTransition(statemachine.Any, "home", "go_home", nil, nil))
		require.NoError(t, m.AddTransition("a", "b", "next", nil, nil))

		require.NoError(t, m.Fire(ctx, "next", nil))
		require.NoError(t, m.Fire(ctx, "go_home", nil))
		assert.Equal(t, "home", m.Current())

		// Reachable again from the new state.
		require.NoError(t, m.Fire(ctx, "go_home", nil))
		assert.Equal(t, "home", m.Current())
	})

	t.Run("exact match wins over wildcard", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("a")
		require.NoError(t, m.AddTransition(statemachine.Any, "fallback", "go", nil, nil))
		require.NoError(t, m.AddTransition("a", "b", "go", nil, nil))

		require.NoError(t, m.Fire(ctx, "go", nil))
		assert.Equal(t, "b", m.Current())
	})

	t.Run("guard rejects transition", func(t *testing.T) {
		t.Parallel()
		allowed := false
		m := statemachine.New("locked")
		guard := func(ctx context.Context, from string, data any) bool { return allowed }
		require.NoError(t, m.AddTransition("locked", "open", "unlock", guard, nil))

		assert.False(t, m.CanFire(ctx, "unlock", nil))
		err := m.Fire(ctx, "unlock", nil)
		assert.ErrorIs(t, err, statemachine.ErrRejected)
		assert.Equal(t, "locked", m.Current())

		allowed = true
		require.NoError(t, m.Fire(ctx, "unlock", nil))
		assert.Equal(t, "open", m.Current())
	})

	t.Run("action failure aborts transition", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		m := statemachine.New("a")
		action := func(ctx context.Context, from, to string, data any) error { return boom }
		require.NoError(t, m.AddTransition("a", "b", "go", nil, action))

		err := m.Fire(ctx, "go", nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "a", m.Current())
	})

	t.Run("action runs with from and to", func(t *testing.T) {
		t.Parallel()
		var gotFrom, gotTo string
		m := statemachine.New("a")
		action := func(ctx context.Context, from, to string, data any) error {
			gotFrom, gotTo = from, to
			return nil
		}
		require.NoError(t, m.AddTransition("a", "b", "go", nil, action))
		require.NoError(t, m.Fire(ctx, "go", nil))
		assert.Equal(t, "a", gotFrom)
		assert.Equal(t, "b", gotTo)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("a")
		require.NoError(t, m.AddTransition("a", "b", "go", nil, nil))
		err := m.AddTransition("a", "c", "go", nil, nil)
		assert.ErrorIs(t, err, statemachine.ErrDuplicateTransition)
	})

	t.Run("reset returns to initial state", func(t *testing.T) {
		t.Parallel()
		m := statemachine.New("a")
		require.NoError(t, m.AddTransition("a", "b", "go", nil, nil))
		require.NoError(t, m.Fire(ctx, "go", nil))
		m.Reset()
		assert.Equal(t, "a", m.Current())
	})
}
