package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbind/server/internal/repository/position"
)

func TestSetAndGetPosition(t *testing.T) {
	r := NewRepo()
	ctx := context.Background()

	require.NoError(t, r.SetPosition(ctx, &position.SetPositionParams{
		SourceURL: "a",
		Seconds:   42.5,
	}))

	seconds, err := r.GetPosition(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 42.5, seconds)

	require.NoError(t, r.SetPosition(ctx, &position.SetPositionParams{
		SourceURL: "a",
		Seconds:   50,
	}))

	seconds, err = r.GetPosition(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 50.0, seconds)
}

func TestGetPositionNotFound(t *testing.T) {
	r := NewRepo()

	_, err := r.GetPosition(context.Background(), "missing")
	assert.ErrorIs(t, err, position.ErrPositionNotFound)
}

func TestRemovePosition(t *testing.T) {
	r := NewRepo()
	ctx := context.Background()

	require.NoError(t, r.SetPosition(ctx, &position.SetPositionParams{
		SourceURL: "a",
		Seconds:   5,
	}))
	require.NoError(t, r.RemovePosition(ctx, "a"))

	_, err := r.GetPosition(ctx, "a")
	assert.ErrorIs(t, err, position.ErrPositionNotFound)

	assert.ErrorIs(t, r.RemovePosition(ctx, "a"), position.ErrPositionNotFound)
}
