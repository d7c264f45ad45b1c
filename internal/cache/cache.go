// Package cache provides the optimistic cache stage: a stream wrapper that
// emits the persisted value for a key immediately, then forwards live values,
// persisting only genuine changes.
package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"liquidityShield/internal/kv"
	"liquidityShield/internal/stream"
)

// Codec converts values to and from the persisted string form. Encoded
// equality decides whether a live value is a change.
type Codec[T any] interface {
	Encode(value T) (string, error)
	Decode(encoded string) (T, error)
}

// StringCodec passes string values through unchanged.
type StringCodec struct{}

func (StringCodec) Encode(value string) (string, error)   { return value, nil }
func (StringCodec) Decode(encoded string) (string, error) { return encoded, nil }

// JSONCodec persists values as JSON.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(value T) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (JSONCodec[T]) Decode(encoded string) (T, error) {
	var value T
	err := json.Unmarshal([]byte(encoded), &value)
	return value, err
}

// Wrap builds the cache stage for key over src. The returned subject replays
// its last value. On start the persisted value (if any) is emitted with zero
// latency; each live value is then compared against the last emitted one and
// only genuine changes are re-emitted and written back. Store and codec
// failures are logged and absorbed.
func Wrap[T any](ctx context.Context, store kv.Store, key string, src *stream.Subject[T], codec Codec[T], logger *zap.Logger) *stream.Subject[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := stream.NewReplaySubject[T](1)
	in, unsubscribe := src.Subscribe()

	go func() {
		defer unsubscribe()
		defer out.Close()

		var lastEncoded string
		have := false

		persisted, ok, err := store.Get(ctx, key)
		if err != nil {
			logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			value, err := codec.Decode(persisted)
			if err != nil {
				logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
			} else {
				lastEncoded = persisted
				have = true
				out.Emit(value)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case value, ok := <-in:
				if !ok {
					return
				}
				encoded, err := codec.Encode(value)
				if err != nil {
					logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
					continue
				}
				if have && encoded == lastEncoded {
					continue
				}
				lastEncoded = encoded
				have = true
				out.Emit(value)
				if err := store.Set(ctx, key, encoded); err != nil {
					logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
				}
			}
		}
	}()
	return out
}
