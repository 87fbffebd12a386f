package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/codecrt/internal/codec"
)

var (
	runFrames      int
	runWidth       int
	runHeight      int
	runCodecString string
	runTemporal    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive an encode -> decode pipeline over synthetic frames",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPipeline(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().IntVar(&runFrames, "frames", 30, "number of synthetic frames to submit")
	runCmd.Flags().IntVar(&runWidth, "width", 320, "frame width")
	runCmd.Flags().IntVar(&runHeight, "height", 240, "frame height")
	runCmd.Flags().StringVar(&runCodecString, "codec", "avc1.42E01E", "encoder codec string")
	runCmd.Flags().IntVar(&runTemporal, "temporal-layers", 1, "SVC temporal layer count (1-3)")
}

// pipelineSink forwards every EncodedOutput it receives straight into a
// decoder instance, and counts failed decode submissions and encoder errors,
// mirroring the role a host
// bridge plays between an encoder and a remote peer's decoder.
type pipelineSink struct {
	dec      *codec.Instance
	decoded  int
	errors   int
	onResult func()
}

func (s *pipelineSink) Deliver(d codec.Delivery) bool {
	switch {
	case d.Encoded != nil:
		err := s.dec.Decode(&codec.PacketBuffer{
			Data:      d.Encoded.Payload,
			Type:      d.Encoded.Type,
			Timestamp: d.Encoded.Timestamp,
			Duration:  d.Encoded.Duration,
		})
		if err != nil {
			log.Warn("pipeline decode submit failed", "error", err)
			s.errors++
		}
	case d.Error != nil:
		log.Warn("encoder error", "kind", d.Error.Kind, "message", d.Error.Message)
		s.errors++
	}
	if s.onResult != nil {
		s.onResult()
	}
	return true
}

type summarySink struct {
	frames int
	errors int
	done   chan struct{}
	want   int
}

func (s *summarySink) Deliver(d codec.Delivery) bool {
	switch {
	case d.Decoded != nil:
		s.frames++
		if s.frames >= s.want && s.done != nil {
			select {
			case s.done <- struct{}{}:
			default:
			}
		}
	case d.Error != nil:
		log.Warn("decoder error", "kind", d.Error.Kind, "message", d.Error.Message)
		s.errors++
	}
	return true
}

func syntheticFrame(width, height int, index int) *codec.FrameBuffer {
	size, _ := codec.AllocationSize(codec.PixelRGBA, width, height)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i + index*7) % 256)
	}
	return &codec.FrameBuffer{
		Data:      data,
		Format:    codec.PixelRGBA,
		Coded:     codec.Dimensions{Width: width, Height: height},
		Visible:   codec.Rect{X: 0, Y: 0, Width: width, Height: height},
		Display:   codec.Dimensions{Width: width, Height: height},
		Timestamp: int64(index) * 33333,
	}
}

func runPipeline() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := codec.NewManagerWithCap(cfg.MaxInstances)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("signal received, force-closing any live instances")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
		os.Exit(1)
	}()

	decSummary := &summarySink{done: make(chan struct{}, 1), want: runFrames}
	dec, err := mgr.NewDecoderInstance(decSummary)
	if err != nil {
		return fmt.Errorf("new decoder instance: %w", err)
	}
	defer dec.Close()

	encSink := &pipelineSink{dec: dec}
	enc, err := mgr.NewEncoderInstance(encSink)
	if err != nil {
		return fmt.Errorf("new encoder instance: %w", err)
	}
	defer enc.Close()

	if err := enc.Configure(&codec.EncoderConfig{
		CodecString:        runCodecString,
		Width:              runWidth,
		Height:             runHeight,
		Bitrate:            cfg.DefaultBitrate,
		Framerate:          cfg.DefaultFramerate,
		GOPSize:            cfg.DefaultGOPSize,
		TemporalLayerCount: runTemporal,
	}); err != nil {
		return fmt.Errorf("configure encoder: %w", err)
	}

	log.Info("submitting frames", "count", runFrames, "width", runWidth, "height", runHeight)
	for i := 0; i < runFrames; i++ {
		if err := enc.Encode(syntheticFrame(runWidth, runHeight, i), codec.EncodeOptions{KeyFrame: i == 0}); err != nil {
			log.Warn("encode submission dropped", "frame", i, "error", err)
		}
		if enc.CodecSaturated() {
			log.Warn("encoder queue saturated, backing off", "queue_size", enc.QueueSize())
			time.Sleep(2 * time.Millisecond)
		}
	}

	if _, err := enc.Flush(); err != nil {
		return fmt.Errorf("flush encoder: %w", err)
	}
	if _, err := dec.Flush(); err != nil {
		return fmt.Errorf("flush decoder: %w", err)
	}

	select {
	case <-decSummary.done:
	case <-time.After(5 * time.Second):
		log.Warn("timed out waiting for all frames to decode")
	}

	fmt.Printf("decoded %d/%d frames, %d encoder errors, %d decoder errors\n",
		decSummary.frames, runFrames, encSink.errors, decSummary.errors)
	return nil
}
