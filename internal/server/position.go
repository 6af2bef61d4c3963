package server

import (
	"context"
	"errors"
	"sync"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// ErrPositionResolved is returned when a position request is resolved twice.
var ErrPositionResolved = errors.New("position already resolved")

// PositionRequest is a single-shot position source fed by the browser. The
// first Resolve or Reject wins; later calls return ErrPositionResolved.
type PositionRequest struct {
	once sync.Once
	done chan struct{}
	pos  models.Coordinates
	err  error
}

var _ session.PositionSource = (*PositionRequest)(nil)

func NewPositionRequest() *PositionRequest {
	return &PositionRequest{done: make(chan struct{})}
}

// Resolve completes the request with a position.
func (p *PositionRequest) Resolve(pos models.Coordinates) error {
	return p.complete(pos, nil)
}

// Reject completes the request with a failure.
func (p *PositionRequest) Reject(err error) error {
	if err == nil {
		err = errors.New("position rejected")
	}
	return p.complete(models.Coordinates{}, err)
}

func (p *PositionRequest) complete(pos models.Coordinates, err error) error {
	resolved := false
	p.once.Do(func() {
		p.pos, p.err = pos, err
		close(p.done)
		resolved = true
	})
	if !resolved {
		return ErrPositionResolved
	}
	return nil
}

// CurrentPosition blocks until the request completes or ctx ends.
func (p *PositionRequest) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	select {
	case <-p.done:
		return p.pos, p.err
	case <-ctx.Done():
		return models.Coordinates{}, ctx.Err()
	}
}
