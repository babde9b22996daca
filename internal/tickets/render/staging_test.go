package render_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zafo-tickets/internal/tickets/render"
	"zafo-tickets/internal/tickets/template"
)

func TestStageAttachDetach(t *testing.T) {
	stage := render.NewStage()
	view := &template.View{TicketNumber: "S-1"}

	node, err := stage.Attach(context.Background(), view)
	require.NoError(t, err)
	assert.Same(t, view, node.View())
	assert.Equal(t, 1, stage.Attached())

	node.Detach()
	node.Detach()
	assert.Zero(t, stage.Attached())

	again, err := stage.Attach(context.Background(), view)
	require.NoError(t, err)
	again.Detach()
}

func TestStageAttachWaitsForDetach(t *testing.T) {
	stage := render.NewStage()
	first, err := stage.Attach(context.Background(), &template.View{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = stage.Attach(ctx, &template.View{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, stage.Attached())

	done := make(chan struct{})
	go func() {
		node, err := stage.Attach(context.Background(), &template.View{})
		if err == nil {
			node.Detach()
		}
		close(done)
	}()

	first.Detach()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second attach never acquired the stage")
	}
	assert.Zero(t, stage.Attached())
}
