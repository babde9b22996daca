package render

import (
	"context"
	"sync"

	"zafo-tickets/internal/tickets/template"
)

// Stage is an off-screen staging area. Only one template is attached at a
// time; a second Attach waits until the first node is detached.
type Stage struct {
	slot chan struct{}

	mu       sync.Mutex
	attached int
}

func NewStage() *Stage {
	return &Stage{slot: make(chan struct{}, 1)}
}

// Attach stages view for rasterization. The returned node must be detached;
// callers defer Detach right after a successful Attach.
func (s *Stage) Attach(ctx context.Context, view *template.View) (*Node, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	s.attached++
	s.mu.Unlock()

	return &Node{stage: s, view: view}, nil
}

// Attached reports how many nodes are currently staged.
func (s *Stage) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Node is a template attached to a Stage.
type Node struct {
	stage *Stage
	view  *template.View
	once  sync.Once
}

func (n *Node) View() *template.View {
	return n.view
}

// Detach releases the staging area. It is safe to call more than once.
func (n *Node) Detach() {
	n.once.Do(func() {
		n.stage.mu.Lock()
		n.stage.attached--
		n.stage.mu.Unlock()
		<-n.stage.slot
	})
}
