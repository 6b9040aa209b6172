package realtime

import (
	"context"
	"errors"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
)

// ErrStreamClosed is returned by Collect when the event stream ends mid-turn.
var ErrStreamClosed = errors.New("realtime: upstream stream closed")

// Collect reads events until one completes the turn and returns the turn's PCM in arrival order.
// A turn that carried no audio returns an empty slice.
func Collect(ctx context.Context, events <-chan adapter.LiveEvent) ([]byte, error) {
	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil, ErrStreamClosed
			}
			pcm = append(pcm, ev.Audio...)
			if ev.TurnComplete {
				return pcm, nil
			}
		}
	}
}
