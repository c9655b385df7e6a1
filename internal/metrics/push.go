package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	DefaultJob      = "bladescope"
	DefaultInstance = "indexer"
)

// Pusher ships a batch to the time-series store.
type Pusher interface {
	Push(ctx context.Context, batch *Batch) error
}

// PushSink pushes batches with the Pushgateway protocol. VictoriaMetrics accepts
// it at /api/v1/import/prometheus and keeps the sample timestamps.
type PushSink struct {
	url      string
	job      string
	instance string
	client   push.HTTPDoer
}

func NewPushSink(url, job, instance string, timeout time.Duration) *PushSink {
	if job == "" {
		job = DefaultJob
	}
	if instance == "" {
		instance = DefaultInstance
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PushSink{url: url, job: job, instance: instance, client: noContentOK{&http.Client{Timeout: timeout}}}
}

// noContentOK reports 204 as 200. VictoriaMetrics answers imports with 204,
// which push treats as a failure.
type noContentOK struct {
	client *http.Client
}

func (d noContentOK) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err == nil && resp.StatusCode == http.StatusNoContent {
		resp.StatusCode = http.StatusOK
	}
	return resp, err
}

// Push adds the batch to the job's group. Empty batches are not sent.
func (s *PushSink) Push(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(batch); err != nil {
		return fmt.Errorf("register batch: %w", err)
	}
	err := push.New(s.url, s.job).
		Grouping("instance", s.instance).
		Gatherer(registry).
		Client(s.client).
		AddContext(ctx)
	if err != nil {
		return fmt.Errorf("push %d series to %s: %w", batch.Len(), s.url, err)
	}
	return nil
}
