package hostbridge

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/breeze-rmm/codecrt/internal/codec"
)

const writeWait = 10 * time.Second

// ControlSink delivers EncodedOutput, ErrorOutput, and flush-completion
// notifications over a WebSocket connection as JSON. It implements
// codec.Sink and follows the same non-blocking, drop-on-full policy the
// teacher's WebSocket client uses for outbound frames: a full send channel
// or a stopped sink reports "no receiver" rather than blocking the worker.
type ControlSink struct {
	instanceID string
	sendChan   chan []byte
	done       chan struct{}
}

// NewControlSink starts a dedicated write pump over conn and returns a sink
// ready to receive deliveries. bufferSize bounds how many deliveries may be
// queued for the socket before Deliver starts reporting no-receiver.
func NewControlSink(conn *websocket.Conn, instanceID string, bufferSize int) *ControlSink {
	if bufferSize < 1 {
		bufferSize = 1
	}
	s := &ControlSink{
		instanceID: instanceID,
		sendChan:   make(chan []byte, bufferSize),
		done:       make(chan struct{}),
	}
	go s.writePump(conn)
	return s
}

func (s *ControlSink) writePump(conn *websocket.Conn) {
	for {
		select {
		case msg, ok := <-s.sendChan:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("control sink write failed, closing", "error", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the write pump. Deliveries racing a concurrent Close report
// no-receiver rather than panicking on a closed channel.
func (s *ControlSink) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

type wireMessage struct {
	Type          string       `json:"type"`
	InstanceID    string       `json:"instanceId"`
	Encoded       *encodedWire `json:"encoded,omitempty"`
	Error         *errorWire   `json:"error,omitempty"`
	FlushComplete bool         `json:"flushComplete,omitempty"`
}

type encodedWire struct {
	Timestamp        int64  `json:"timestamp"`
	Duration         *int64 `json:"duration,omitempty"`
	Type             string `json:"type"`
	FrameIndex       int64  `json:"frameIndex"`
	TemporalLayerID  int    `json:"temporalLayerId"`
	PayloadBytes     int    `json:"payloadBytes"`
	HasDecoderConfig bool   `json:"hasDecoderConfig"`
}

type errorWire struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	CodecErrorCode *int   `json:"codecErrorCode,omitempty"`
}

// Deliver marshals d and enqueues it for the write pump. Only the
// Encoded/Error/FlushComplete cases are meaningful on a control channel; a
// Decoded delivery (which belongs on a TrackSink) is acknowledged without
// being sent.
func (s *ControlSink) Deliver(d codec.Delivery) bool {
	msg := wireMessage{InstanceID: s.instanceID}
	switch {
	case d.Encoded != nil:
		msg.Type = "encoded"
		msg.Encoded = &encodedWire{
			Timestamp:        d.Encoded.Timestamp,
			Duration:         d.Encoded.Duration,
			Type:             string(d.Encoded.Type),
			FrameIndex:       d.Encoded.FrameIndex,
			TemporalLayerID:  d.Encoded.Metadata.SVC.TemporalLayerID,
			PayloadBytes:     len(d.Encoded.Payload),
			HasDecoderConfig: d.Encoded.Metadata.DecoderConfig != nil,
		}
	case d.Error != nil:
		msg.Type = "error"
		msg.Error = &errorWire{
			Kind:           string(d.Error.Kind),
			Message:        d.Error.Message,
			CodecErrorCode: d.Error.CodecErrorCode,
		}
	case d.FlushComplete:
		msg.Type = "flush-complete"
		msg.FlushComplete = true
	case d.Decoded != nil:
		return true
	default:
		return true
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn("control sink marshal failed, dropping delivery", "error", err)
		return false
	}

	select {
	case s.sendChan <- data:
		return true
	case <-s.done:
		return false
	default:
		log.Warn("control sink send channel full, dropping delivery")
		return false
	}
}
