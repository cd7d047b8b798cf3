// stream_dispatcher.go
// --------------------
// Serializes a provider's asynchronous event sequence into an ordered,
// cancellable frame stream. One dispatcher run owns one short-lived
// session: it forwards events in strict source order, synthesizes exactly
// one terminal frame (done on normal completion, error on source failure),
// and closes the sink exactly once on every exit path.
//
// Cancellation is cooperative. When the external context is cancelled the
// session is marked aborted and the sink is closed immediately; the event
// source is abandoned, never force-terminated. A cancelled session writes
// no further frames and synthesizes no terminal frame.
package cinebridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cinebridge/cine-bridge/internal/logging"
	"github.com/cinebridge/cine-bridge/internal/metrics"
)

// StreamState is the terminal state of a dispatcher session.
type StreamState string

const (
	StreamCompleted StreamState = "COMPLETED"
	StreamFailed    StreamState = "FAILED"
	StreamCancelled StreamState = "CANCELLED"
)

// StreamDispatcher consumes StreamEvents and writes Frames. Stateless;
// per-session state lives in the Run call.
type StreamDispatcher struct{}

func NewStreamDispatcher() *StreamDispatcher {
	return &StreamDispatcher{}
}

// Run drains source into sink until the source completes, fails, or ctx is
// cancelled. It never returns an error: every failure is delivered as a
// single in-band error frame (the transport response has already started
// by the time one can occur).
func (d *StreamDispatcher) Run(ctx context.Context, source <-chan StreamEvent, sink FrameSink) StreamState {
	var aborted atomic.Bool
	var closeOnce sync.Once
	closeSink := func() {
		closeOnce.Do(func() {
			if err := sink.Close(); err != nil {
				logging.Debugf("stream dispatcher: sink close: %v", err)
			}
		})
	}

	// Cancel listener: mark the session aborted and release the sink as
	// soon as the external signal fires, even if the forwarding loop is
	// blocked on a slow source.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			aborted.Store(true)
			closeSink()
		case <-watchDone:
		}
	}()

	defer closeSink()

	state := d.forward(ctx, source, sink, &aborted)
	metrics.StreamSessions.WithLabelValues(string(state)).Inc()
	return state
}

func (d *StreamDispatcher) forward(ctx context.Context, source <-chan StreamEvent, sink FrameSink, aborted *atomic.Bool) StreamState {
	for {
		if aborted.Load() {
			return StreamCancelled
		}

		select {
		case <-ctx.Done():
			return StreamCancelled
		case ev, ok := <-source:
			if !ok {
				// Source exhausted normally: synthesize the one terminal
				// success marker, whether or not the source emitted Done.
				if aborted.Load() || ctx.Err() != nil {
					return StreamCancelled
				}
				d.write(sink, Frame{Event: string(EventDone), Data: "null"})
				return StreamCompleted
			}
			// Re-check after the receive: the select picks arbitrarily when
			// both the source and the cancel signal are ready.
			if aborted.Load() || ctx.Err() != nil {
				return StreamCancelled
			}

			switch ev.Type {
			case EventText:
				if !d.write(sink, Frame{Event: string(EventText), Data: ev.Text}) {
					return StreamCancelled
				}
			case EventMovie:
				payload, err := json.Marshal(ev.Movie)
				if err != nil {
					d.write(sink, errorFrame(Classify(err)))
					return StreamFailed
				}
				if !d.write(sink, Frame{Event: string(EventMovie), Data: string(payload)}) {
					return StreamCancelled
				}
			case EventDone:
				// The source's own terminal marker is not forwarded; the
				// synthesized done below is the single success frame.
				d.write(sink, Frame{Event: string(EventDone), Data: "null"})
				return StreamCompleted
			case EventError:
				ce := ev.Err
				if ce == nil {
					ce = Classify(fmt.Errorf("provider stream failed"))
				}
				logging.Warnf("stream dispatcher: source failed: %s", ce.Error())
				d.write(sink, errorFrame(ce))
				return StreamFailed
			}
		}
	}
}

// write forwards one frame. A sink write failure means the client is gone;
// the session is treated as cancelled and no further frames follow.
func (d *StreamDispatcher) write(sink FrameSink, f Frame) bool {
	if err := sink.Write(f); err != nil {
		logging.Debugf("stream dispatcher: frame write failed: %v", err)
		return false
	}
	metrics.StreamFrames.WithLabelValues(f.Event).Inc()
	return true
}

func errorFrame(ce *ClassifiedError) Frame {
	payload, err := json.Marshal(map[string]interface{}{
		"error":     true,
		"errorType": ce.Kind,
		"message":   ce.Message,
	})
	if err != nil {
		payload = []byte(`{"error":true,"errorType":"UNKNOWN_ERROR","message":"failed to encode error"}`)
	}
	return Frame{Event: string(EventError), Data: string(payload)}
}
