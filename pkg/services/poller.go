package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller runs the fetch service on a fixed interval in the background. It is
// optional; hosts that drive fetch-incidents themselves leave it disabled.
type Poller struct {
	fetch    *FetchService
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a new poller around a fetch service
func NewPoller(fetch *FetchService, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
	}
}

// Start launches the polling loop. One cycle runs immediately, then one per
// interval. Cycle failures are logged and the loop keeps going; the failed
// window is retried on the next cycle because the watermark only advances on
// a successful fetch.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	logrus.Infof("Starting incident poller (interval %s)", p.interval)

	go func() {
		defer close(p.done)

		p.runOnce(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.runOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Poller) runOnce(ctx context.Context) {
	count, err := p.fetch.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logrus.Errorf("Incident fetch cycle failed: %v", err)
		return
	}
	if count > 0 {
		logrus.Infof("Pushed %d incidents to the host platform", count)
	}
}

// Shutdown stops the polling loop and waits for the current cycle to finish.
func (p *Poller) Shutdown() {
	logrus.Info("Shutting down incident poller")
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}
}
