package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
	// DefaultPushInterval is how often Start pushes the current values.
	DefaultPushInterval = 15 * time.Second
)

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:8428").
	URL string
	// Prefix is the metric name prefix. All metric names will be prefixed with this value
	// followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Interval is the push period used by Start. Defaults to DefaultPushInterval.
	Interval time.Duration
}

// PushRegistry implements Registry for push-based metrics collection.
//
// Setting a metric only records its latest value. Push sends every recorded
// series in a single remote write request, so updates on the store mutation
// path never wait on the network.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	interval   time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	series map[string]*sample // protected by mu
}

type sample struct {
	name   string
	labels map[string]string
	value  float64
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to the given URL.
func NewPushRegistry(cfg PushConfig, logger *slog.Logger) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultPushInterval
	}

	return &PushRegistry{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		interval:   interval,
		logger:     logger,
		series:     make(map[string]*sample),
	}
}

// NewGauge creates a new push-based Gauge.
func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{registry: r, name: opts.Name}, nil
}

// NewGaugeVec creates a new push-based GaugeVec.
func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{registry: r, name: opts.Name}, nil
}

// NewCounterVec creates a new push-based CounterVec.
func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{registry: r, name: opts.Name}, nil
}

// Start pushes the recorded series every interval until ctx is cancelled.
// Returns immediately.
func (r *PushRegistry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Push(ctx); err != nil {
					r.logger.Warn("failed to push metrics", "error", err, "url", r.url)
				}
			}
		}
	}()
}

// Push sends the latest value of every recorded series to the remote write
// endpoint.
func (r *PushRegistry) Push(ctx context.Context) error {
	timeseries := r.timeseries(time.Now())
	if len(timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(&prompb.WriteRequest{Timeseries: timeseries})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// set records the latest value of a series.
func (r *PushRegistry) set(name string, labels map[string]string, value float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.series[key] = &sample{name: name, labels: labels, value: value}
}

// add increments a series.
func (r *PushRegistry) add(name string, labels map[string]string, delta float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[key]
	if !ok {
		s = &sample{name: name, labels: labels}
		r.series[key] = s
	}
	s.value += delta
}

// timeseries converts the recorded series to Prometheus TimeSeries format,
// ordered by series key.
func (r *PushRegistry) timeseries(now time.Time) []prompb.TimeSeries {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]prompb.TimeSeries, 0, len(keys))
	for _, k := range keys {
		s := r.series[k]
		out = append(out, prompb.TimeSeries{
			Labels:  r.promLabels(s.name, s.labels),
			Samples: []prompb.Sample{{
				Value:     s.value,
				Timestamp: now.UnixMilli(),
			}},
		})
	}
	return out
}

func (r *PushRegistry) promLabels(name string, labels map[string]string) []prompb.Label {
	out := make([]prompb.Label, 0, len(labels)+3)

	metricName := name
	if r.prefix != "" {
		metricName = r.prefix + "_" + name
	}
	out = append(out, prompb.Label{Name: "__name__", Value: metricName})

	if r.job != "" {
		out = append(out, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		out = append(out, prompb.Label{Name: "instance", Value: r.instance})
	}
	for _, k := range sortedKeys(labels) {
		out = append(out, prompb.Label{Name: k, Value: labels[k]})
	}
	return out
}

// seriesKey creates a stable string key for a metric name and label set.
func seriesKey(name string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, k := range sortedKeys(labels) {
		b.WriteString("," + k + "=" + labels[k])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pushGauge implements Gauge for push mode.
type pushGauge struct {
	registry *PushRegistry
	name     string
	labels   map[string]string
}

func (g *pushGauge) Set(v float64) {
	g.registry.set(g.name, g.labels, v)
}

// pushGaugeVec implements GaugeVec for push mode.
type pushGaugeVec struct {
	registry *PushRegistry
	name     string
}

func (g *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{registry: g.registry, name: g.name, labels: labels}
}

// pushCounter implements Counter for push mode.
type pushCounter struct {
	registry *PushRegistry
	name     string
	labels   map[string]string
}

func (c *pushCounter) Inc() {
	c.registry.add(c.name, c.labels, 1)
}

// pushCounterVec implements CounterVec for push mode.
type pushCounterVec struct {
	registry *PushRegistry
	name     string
}

func (c *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{registry: c.registry, name: c.name, labels: labels}
}
