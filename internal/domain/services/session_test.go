package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/mocks"
)

func TestSessionLifecycle(t *testing.T) {
	log := mocks.NewEventLog()
	sessions := NewSessions(log)
	ctx := context.Background()

	current, err := sessions.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	started, err := sessions.Start(ctx, "drafting the northern kingdoms", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, started.ID)
	assert.Equal(t, 1, started.Step)

	// The state is derived from the log, not from the returned struct.
	current, err = sessions.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, started.ID, current.ID)
	assert.Equal(t, "drafting the northern kingdoms", current.Note)
	assert.Equal(t, 0, current.Checkpoints)

	ended, err := sessions.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, ended.ID)

	current, err = sessions.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	assert.Equal(t, []entities.EventKind{
		entities.EventSessionStarted,
		entities.EventSessionEnded,
	}, log.Kinds())
}

func TestStartRefusesSecondSession(t *testing.T) {
	sessions := NewSessions(mocks.NewEventLog())
	ctx := context.Background()

	first, err := sessions.Start(ctx, "", 1)
	require.NoError(t, err)

	_, err = sessions.Start(ctx, "", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), first.ID)
}

func TestCheckpointAdvancesStep(t *testing.T) {
	log := mocks.NewEventLog()
	sessions := NewSessions(log)
	ctx := context.Background()

	_, err := sessions.Start(ctx, "", 1)
	require.NoError(t, err)

	state, err := sessions.Checkpoint(ctx, "kingdoms sketched", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Step)
	assert.Equal(t, 1, state.Checkpoints)

	// Step zero leaves the current step untouched.
	state, err = sessions.Checkpoint(ctx, "names settled", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Step)
	assert.Equal(t, 2, state.Checkpoints)

	current, err := sessions.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 2, current.Step)
	assert.Equal(t, 2, current.Checkpoints)
}

func TestCheckpointRequiresActiveSession(t *testing.T) {
	sessions := NewSessions(mocks.NewEventLog())

	_, err := sessions.Checkpoint(context.Background(), "", 0)
	require.Error(t, err)

	_, err = sessions.End(context.Background())
	require.Error(t, err)
}

func TestSessionsCanReopenAfterEnd(t *testing.T) {
	sessions := NewSessions(mocks.NewEventLog())
	ctx := context.Background()

	first, err := sessions.Start(ctx, "", 1)
	require.NoError(t, err)
	_, err = sessions.End(ctx)
	require.NoError(t, err)

	second, err := sessions.Start(ctx, "", 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	current, err := sessions.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}
