// Package hostbridge adapts the codec CORE's output channel (codec.Sink) to
// the two concrete transports a host process actually has: a WebRTC media
// track for decoded video and a WebSocket control connection for encoded
// chunks and errors. Both sinks follow the non-blocking, drop-on-full
// delivery contract §4.6 requires of the core's collaborator.
package hostbridge

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/breeze-rmm/codecrt/internal/codec"
	"github.com/breeze-rmm/codecrt/internal/logging"
)

var log = logging.L("hostbridge")

// TrackSink delivers DecodedOutput payloads to a WebRTC sample track. It
// implements codec.Sink; a decoder Instance can be pointed at it directly.
type TrackSink struct {
	track *webrtc.TrackLocalStaticSample
}

// NewTrackSink wraps an already-negotiated video track. The caller is
// responsible for adding track to a PeerConnection; this type only writes
// samples to it.
func NewTrackSink(track *webrtc.TrackLocalStaticSample) *TrackSink {
	return &TrackSink{track: track}
}

// Deliver writes one decoded frame as a media.Sample. It returns false (the
// "no receiver" signal from §4.6) when WriteSample fails, e.g. because the
// track has already been removed from its PeerConnection.
func (s *TrackSink) Deliver(d codec.Delivery) bool {
	if d.Decoded == nil {
		return true
	}
	duration := time.Duration(0)
	if d.Decoded.Duration != nil {
		duration = time.Duration(*d.Decoded.Duration) * time.Microsecond
	}
	sample := media.Sample{
		Data:     d.Decoded.Payload,
		Duration: duration,
	}
	if err := s.track.WriteSample(sample); err != nil {
		log.Debug("dropping decoded frame, track write failed", "error", err)
		return false
	}
	return true
}

// NewVideoTrack creates the RTP sample track a TrackSink writes to, mirroring
// the teacher's H.264 WebRTC track setup (MIME type, 90kHz clock,
// packetization-mode=1 for broad browser decoder compatibility).
func NewVideoTrack(streamID string) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
		},
		"video",
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("hostbridge: create video track: %w", err)
	}
	return track, nil
}
