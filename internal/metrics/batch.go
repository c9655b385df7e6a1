// Package metrics turns quest, duel and game-state observations into
// Prometheus samples stamped with the block time, and pushes them to a
// VictoriaMetrics or Pushgateway import endpoint.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label is one name/value pair of a sample.
type Label struct {
	Name  string
	Value string
}

type series struct {
	labelValues []string
	value       float64
}

type family struct {
	desc       *prometheus.Desc
	labelNames []string
	series     map[string]*series
	order      []string
}

// Batch is a set of gauges observed at one instant. Adding the same series
// twice sums the values.
type Batch struct {
	mu        sync.Mutex
	timestamp time.Time
	families  map[string]*family
	names     []string
}

func NewBatch(timestamp time.Time) *Batch {
	return &Batch{timestamp: timestamp, families: make(map[string]*family)}
}

// Timestamp is the instant every sample of the batch is stamped with.
func (b *Batch) Timestamp() time.Time {
	return b.timestamp
}

// Add records value for the series name{labels}.
func (b *Batch) Add(name, help string, value float64, labels ...Label) error {
	names := make([]string, len(labels))
	values := make([]string, len(labels))
	for i, label := range labels {
		names[i] = label.Name
		values[i] = label.Value
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fam, ok := b.families[name]
	if !ok {
		fam = &family{
			desc:       prometheus.NewDesc(name, help, names, nil),
			labelNames: names,
			series:     make(map[string]*series),
		}
		b.families[name] = fam
		b.names = append(b.names, name)
	} else if strings.Join(fam.labelNames, ",") != strings.Join(names, ",") {
		return fmt.Errorf("metric %s: label set %v does not match %v", name, names, fam.labelNames)
	}

	key := strings.Join(values, "\xff")
	if existing, ok := fam.series[key]; ok {
		existing.value += value
		return nil
	}
	fam.series[key] = &series{labelValues: values, value: value}
	fam.order = append(fam.order, key)
	return nil
}

// Len is the number of distinct series in the batch.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, fam := range b.families {
		n += len(fam.series)
	}
	return n
}

// Names lists the metric names in the batch, sorted.
func (b *Batch) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.names...)
	sort.Strings(out)
	return out
}

// Describe sends nothing, which makes Batch an unchecked collector: its
// families differ from block to block.
func (b *Batch) Describe(chan<- *prometheus.Desc) {}

func (b *Batch) Collect(ch chan<- prometheus.Metric) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range b.names {
		fam := b.families[name]
		for _, key := range fam.order {
			s := fam.series[key]
			metric, err := prometheus.NewConstMetric(fam.desc, prometheus.GaugeValue, s.value, s.labelValues...)
			if err != nil {
				ch <- prometheus.NewInvalidMetric(fam.desc, err)
				continue
			}
			ch <- prometheus.NewMetricWithTimestamp(b.timestamp, metric)
		}
	}
}
