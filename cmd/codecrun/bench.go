package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/codecrt/internal/codec"
)

var (
	benchInstances int
	benchFrames    int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Open many encoder instances concurrently to exercise the manager's concurrency cap",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBench(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchInstances, "instances", 12, "number of encoder instances to attempt")
	benchCmd.Flags().IntVar(&benchFrames, "frames", 10, "frames per instance")
}

type discardCountingSink struct {
	mu    sync.Mutex
	count int
}

func (s *discardCountingSink) Deliver(d codec.Delivery) bool {
	if d.Encoded != nil {
		s.mu.Lock()
		s.count++
		s.mu.Unlock()
	}
	return true
}

func runBench() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := codec.NewManagerWithCap(cfg.MaxInstances)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	}()

	var wg sync.WaitGroup
	var admitted, refused int
	var mu sync.Mutex

	for i := 0; i < benchInstances; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink := &discardCountingSink{}
			inst, err := mgr.NewEncoderInstance(sink)
			if err != nil {
				mu.Lock()
				refused++
				mu.Unlock()
				return
			}
			mu.Lock()
			admitted++
			mu.Unlock()
			defer inst.Close()

			if err := inst.Configure(&codec.EncoderConfig{CodecString: "avc1.42E01E", Width: 64, Height: 64}); err != nil {
				log.Warn("bench instance configure failed", "index", i, "error", err)
				return
			}
			for f := 0; f < benchFrames; f++ {
				_ = inst.Encode(syntheticFrame(64, 64, f), codec.EncodeOptions{KeyFrame: f == 0})
			}
			if _, err := inst.Flush(); err != nil {
				log.Warn("bench instance flush failed", "index", i, "error", err)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("admitted %d/%d instances (cap %d), %d refused with quota-exceeded\n",
		admitted, benchInstances, cfg.MaxInstances, refused)
	return nil
}
