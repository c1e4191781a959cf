package session

import (
	"context"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/router"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

// ReadPump continuously decodes inbound frames and hands each envelope to
// rt.Route, until the connection errs out or the session closes. Mirrors
// the teacher's client.readPump loop-then-dispatch shape.
func (s *Session) ReadPump(rt *router.Router, maxMessageBytes int64) {
	defer func() {
		rt.HandleDisconnect(s)
		s.Close(types.CloseReasonClientClosed)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if maxMessageBytes > 0 && int64(len(data)) > maxMessageBytes {
			s.sendProtocolError(apperr.CodeInvalidMessage, "message exceeds the configured size limit")
			continue
		}
		if !s.shedder.Allow() {
			continue // drop silently; the client's own resend/ack logic is expected to cover this
		}

		env, err := s.codec.Unmarshal(data)
		if err != nil {
			s.sendProtocolError(apperr.CodeInvalidMessage, "malformed envelope")
			continue
		}

		rt.Route(context.Background(), s, env)

		select {
		case <-s.closed:
			return
		default:
		}
	}
}

func (s *Session) sendProtocolError(code apperr.Code, message string) {
	env, err := transport.NewEnvelope(transport.TypeError, struct {
		Message   string      `json:"message"`
		ErrorCode apperr.Code `json:"errorCode"`
	}{Message: message, ErrorCode: code})
	if err != nil {
		return
	}
	s.Send(env)
}

// WritePump drains the outbound queue, implementing the Idle / Buffering /
// Flush batching states of spec.md §4.7: with batching enabled it
// accumulates envelopes (Buffering) until BatchSize is reached or
// BatchIntervalMs elapses, then writes them all at once (Flush) and
// returns to Idle; with batching disabled every envelope flushes the
// instant it is dequeued.
func (s *Session) WritePump() {
	var batch []transport.Envelope
	timer := time.NewTimer(s.batchInterval)
	defer timer.Stop()

	pingTicker := time.NewTicker(s.pingPeriod)
	defer pingTicker.Stop()

	flush := func() bool {
		defer func() { batch = batch[:0] }()
		if len(batch) == 0 {
			return true
		}
		if s.enableBatch {
			return s.writeBatchFrame(batch) == nil
		}
		for _, env := range batch {
			if err := s.writeFrame(env); err != nil {
				return false
			}
		}
		return true
	}

	for {
		select {
		case env, ok := <-s.outbound:
			if !ok {
				flush()
				return
			}
			batch = append(batch, env)
			if !s.enableBatch || len(batch) >= s.batchSize {
				if !flush() {
					s.Close(types.CloseReasonClientClosed)
					return
				}
				drainTimer(timer)
				timer.Reset(s.batchInterval)
			}
		case <-timer.C:
			if !flush() {
				s.Close(types.CloseReasonClientClosed)
				return
			}
			timer.Reset(s.batchInterval)
		case <-s.closed:
			flush()
			return
		case <-pingTicker.C:
			if err := s.conn.Ping(); err != nil {
				s.Close(types.CloseReasonClientClosed)
				return
			}
		}
	}
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (s *Session) writeFrame(env transport.Envelope) error {
	data, err := s.codec.Marshal(env)
	if err != nil {
		logging.Error(context.Background(), "failed to encode outbound envelope",
			zap.String("session_id", string(s.id)), zap.Error(err))
		return nil
	}
	return s.writeBytes(data)
}

// writeBatchFrame encodes the whole batch as one frame (spec.md §4.7's
// Flush state), so a batch of N envelopes costs one WriteMessage call
// instead of N.
func (s *Session) writeBatchFrame(batch []transport.Envelope) error {
	data, err := s.codec.MarshalBatch(batch)
	if err != nil {
		logging.Error(context.Background(), "failed to encode outbound batch",
			zap.String("session_id", string(s.id)), zap.Int("batch_size", len(batch)), zap.Error(err))
		return nil
	}
	return s.writeBytes(data)
}

func (s *Session) writeBytes(data []byte) error {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteMessage(0, data); err != nil {
		logging.Warn(context.Background(), "outbound write failed, closing session",
			zap.String("session_id", string(s.id)), zap.Error(err))
		return err
	}
	return nil
}
