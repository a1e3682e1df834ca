package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/swasher/productus/internal/domain"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// changeSubscription delivers full snapshots through a capacity-1 channel
// with latest-wins semantics: a slow consumer only ever sees the most
// recent state, matching the supersession guarantee of the store boundary.
type changeSubscription[T any] struct {
	updates chan T
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *changeSubscription[T]) Updates() <-chan T {
	return s.updates
}

func (s *changeSubscription[T]) Err() <-chan error {
	return s.errs
}

func (s *changeSubscription[T]) Close() {
	s.once.Do(s.cancel)
}

// watch opens a change stream on the collection, emits one initial snapshot
// immediately, then re-queries and emits on every matching event until the
// subscription is closed or the parent context ends.
func watch[T any](ctx context.Context, collection *mongo.Collection, pipeline mongo.Pipeline, query func(context.Context) (T, error)) (domain.Subscription[T], error) {
	streamCtx, cancel := context.WithCancel(ctx)

	streamOptions := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := collection.Watch(streamCtx, pipeline, streamOptions)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	sub := &changeSubscription[T]{
		updates: make(chan T, 1),
		errs:    make(chan error, 1),
		cancel:  cancel,
	}

	go func() {
		defer close(sub.updates)
		defer stream.Close(context.Background())

		sub.emit(streamCtx, query)
		for stream.Next(streamCtx) {
			sub.emit(streamCtx, query)
		}

		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			sub.pushErr(err)
		}
	}()

	return sub, nil
}

func (s *changeSubscription[T]) emit(ctx context.Context, query func(context.Context) (T, error)) {
	snapshot, err := query(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.pushErr(err)
		}
		return
	}

	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}
		// Channel full: drop the superseded snapshot and retry.
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *changeSubscription[T]) pushErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
