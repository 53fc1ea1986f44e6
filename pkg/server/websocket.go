package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/hashpad-dev/hashpad/pkg/protocol"
)

// ReadLoop reads frames until the connection fails or the session closes.
// Events are queued onto the session loop; control frames are answered
// here.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		mt, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
				s.metrics.WebSocketError("read")
			}
			return
		}

		s.UpdateLastActive()
		s.bytesRecv.Add(uint64(len(msg)))

		if mt != websocket.BinaryMessage {
			s.logger.Warn("non-binary message", "message_type", mt)
			s.sendErrorMessage(protocol.ErrInvalidFrame, "expected a binary frame")
			continue
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.metrics.WebSocketError("decode")
			s.sendErrorMessage(protocol.ErrInvalidFrame, "invalid frame")
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame.Payload)

		case protocol.FrameControl:
			s.handleControlFrame(frame.Payload)

		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// handleEventFrame decodes an event and queues it on the session loop.
func (s *Session) handleEventFrame(payload []byte) {
	ev, err := protocol.DecodeEventFrom(
		protocol.NewDecoderWithLimit(payload, int(s.config.MaxMessageSize)))
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.metrics.WebSocketError("decode")
		s.sendErrorMessage(protocol.ErrInvalidEvent, "invalid event format")
		return
	}

	s.eventCount.Add(1)
	s.metrics.Event(ev.Type.String())

	if s.backlog.idle() && s.loop.TryDispatch(func() { s.handleEvent(ev) }) {
		return
	}

	ok, start := s.backlog.push(ev, s.config.MaxEventQueue)
	if !ok {
		s.logger.Warn("event backlog full, dropping event", "type", ev.Type, "seq", ev.Seq)
		s.metrics.WebSocketError("queue_full")
		s.sendErrorMessage(protocol.ErrEventQueueFull, "event queue full")
		return
	}
	s.logger.Debug("event queue full, event deferred", "type", ev.Type, "seq", ev.Seq)
	if start {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.drainBacklog()
		}()
	}
}

// drainBacklog hands deferred events to the loop in order, waiting for
// room in the queue. Once the loop stops the rest are discarded.
func (s *Session) drainBacklog() {
	for {
		ev, ok := s.backlog.pop()
		if !ok {
			return
		}
		s.loop.Dispatch(func() { s.handleEvent(ev) })
	}
}

// handleControlFrame handles ping, pong and close.
func (s *Session) handleControlFrame(payload []byte) {
	ct, data, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		return
	}

	switch ct {
	case protocol.ControlPing:
		if pp, ok := data.(*protocol.PingPong); ok {
			s.sendPong(pp.Timestamp)
		}

	case protocol.ControlPong:
		s.logger.Debug("received pong")

	case protocol.ControlClose:
		if cm, ok := data.(*protocol.CloseMessage); ok {
			s.logger.Info("client closing", "reason", cm.Reason, "message", cm.Message)
		}
		s.Close()
	}
}

// WriteLoop sends heartbeat pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// SendPatches sends patches as one frame with the next sequence number,
// acknowledging the last applied client event. A failed write closes the
// session.
func (s *Session) SendPatches(patches []protocol.Patch) {
	pf := &protocol.PatchesFrame{
		Seq:     s.sendSeq.Add(1),
		Ack:     s.recvSeq.Load(),
		Patches: patches,
	}
	frame := protocol.NewFrame(protocol.FramePatches, protocol.EncodePatches(pf))

	if err := s.writeFrame(frame); err != nil {
		if err != ErrSessionClosed {
			s.logger.Error("write error", "error", err)
			s.metrics.WebSocketError("write")
			s.Close()
		}
		return
	}

	s.patchCount.Add(uint64(len(patches)))
	s.metrics.PatchesSent(len(patches))
}

// SendClose sends a close control message to the client.
func (s *Session) SendClose(reason protocol.CloseReason, message string) {
	ct, cm := protocol.NewClose(reason, message)
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, cm))
	_ = s.writeFrame(frame)
}

func (s *Session) sendErrorMessage(code protocol.ErrorCode, message string) {
	frame := protocol.NewFrame(protocol.FrameError,
		protocol.EncodeErrorMessage(protocol.NewError(code, message)))
	if err := s.writeFrame(frame); err != nil && err != ErrSessionClosed {
		s.logger.Warn("error frame not sent", "code", code, "error", err)
	}
}

func (s *Session) sendPing() error {
	ct, pp := protocol.NewPing(uint64(time.Now().UnixMilli()))
	err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, pp)))
	if err != nil && err != ErrSessionClosed {
		s.logger.Error("ping error", "error", err)
	}
	return err
}

func (s *Session) sendPong(timestamp uint64) {
	ct, pp := protocol.NewPong(timestamp)
	err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, pp)))
	if err != nil && err != ErrSessionClosed {
		s.logger.Error("pong error", "error", err)
	}
}

// writeFrame writes one frame under the write lock.
func (s *Session) writeFrame(frame *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}

	data := frame.Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return NewSessionError(s.ID, "write "+frame.Type.String(), err)
	}
	s.bytesSent.Add(uint64(len(data)))
	return nil
}
