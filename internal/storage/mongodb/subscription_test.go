package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryReturning(snapshot []string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		return snapshot, nil
	}
}

func TestEmitDeliversSnapshot(t *testing.T) {
	sub := &changeSubscription[[]string]{
		updates: make(chan []string, 1),
		errs:    make(chan error, 1),
		cancel:  func() {},
	}

	sub.emit(context.Background(), queryReturning([]string{"a"}))

	select {
	case snapshot := <-sub.updates:
		assert.Equal(t, []string{"a"}, snapshot)
	default:
		t.Fatal("no snapshot delivered")
	}
}

func TestEmitLatestWins(t *testing.T) {
	sub := &changeSubscription[[]string]{
		updates: make(chan []string, 1),
		errs:    make(chan error, 1),
		cancel:  func() {},
	}

	// With no consumer, a newer snapshot replaces the queued one.
	sub.emit(context.Background(), queryReturning([]string{"stale"}))
	sub.emit(context.Background(), queryReturning([]string{"fresh"}))

	select {
	case snapshot := <-sub.updates:
		assert.Equal(t, []string{"fresh"}, snapshot)
	default:
		t.Fatal("no snapshot delivered")
	}
}

func TestEmitReportsQueryErrors(t *testing.T) {
	sub := &changeSubscription[[]string]{
		updates: make(chan []string, 1),
		errs:    make(chan error, 1),
		cancel:  func() {},
	}

	queryErr := errors.New("query failed")
	sub.emit(context.Background(), func(context.Context) ([]string, error) {
		return nil, queryErr
	})

	select {
	case err := <-sub.errs:
		assert.ErrorIs(t, err, queryErr)
	default:
		t.Fatal("no error delivered")
	}

	assert.Empty(t, sub.updates)
}

func TestEmitDropsErrorsAfterCancel(t *testing.T) {
	sub := &changeSubscription[[]string]{
		updates: make(chan []string, 1),
		errs:    make(chan error, 1),
		cancel:  func() {},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub.emit(ctx, func(context.Context) ([]string, error) {
		return nil, errors.New("cursor closed")
	})

	require.Empty(t, sub.errs)
}
