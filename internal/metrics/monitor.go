// Package metrics collects process and socket-layer metrics: cumulative
// connection/message/error counters plus a periodic time series of
// runtime samples, persisted as one JSON document. The document shape is
// what the report tooling already consumes.
package metrics

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Gauges are point-in-time values sampled alongside the counters. The
// provider callback must be safe to call from the sampler goroutine.
type Gauges struct {
	ConnectedClients int64 `json:"connectedClients"`
	ActiveRooms      int64 `json:"activeRooms"`
	LiveMatches      int   `json:"liveMatches"`
}

// Counters are cumulative since process start.
type Counters struct {
	Connections      int64 `json:"connections"`
	Disconnections   int64 `json:"disconnections"`
	MessagesReceived int64 `json:"messagesReceived"`
	MessagesSent     int64 `json:"messagesSent"`
	Errors           int64 `json:"errors"`
}

type MemoryStats struct {
	HeapAllocMB  float64 `json:"heapAllocMB"`
	HeapSysMB    float64 `json:"heapSysMB"`
	SysMB        float64 `json:"sysMB"`
	NumGC        uint32  `json:"numGC"`
	GCCPUPercent float64 `json:"gcCpuPercent"`
}

type Sample struct {
	Timestamp  int64       `json:"timestamp"`
	Elapsed    float64     `json:"elapsed"`
	Goroutines int         `json:"goroutines"`
	Memory     MemoryStats `json:"memory"`
	Gauges
	Counters
}

type SystemInfo struct {
	CPUCount  int    `json:"cpuCount"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	GoVersion string `json:"goVersion"`
}

// Document is the persisted artifact.
type Document struct {
	StartTime     int64      `json:"startTime"`
	EndTime       int64      `json:"endTime"`
	Duration      float64    `json:"duration"`
	SystemInfo    SystemInfo `json:"systemInfo"`
	Metrics       []Sample   `json:"metrics"`
	SocketMetrics Counters   `json:"socketMetrics"`
	IsRunning     bool       `json:"isRunning"`
}

type Monitor struct {
	outputFile    string
	interval      time.Duration
	autosaveEvery int
	startTime     time.Time
	log           *zap.SugaredLogger

	connections      atomic.Int64
	disconnections   atomic.Int64
	messagesReceived atomic.Int64
	messagesSent     atomic.Int64
	errors           atomic.Int64

	mu      sync.Mutex
	samples []Sample
	gauges  func() Gauges
}

// New builds a Monitor writing to outputFile. interval is the sampling
// cadence; the document is autosaved every autosave period on top of
// explicit Flush calls.
func New(outputFile string, interval, autosave time.Duration, log *zap.SugaredLogger) *Monitor {
	every := 1
	if interval > 0 && autosave > interval {
		every = int(autosave / interval)
	}
	return &Monitor{
		outputFile:    outputFile,
		interval:      interval,
		autosaveEvery: every,
		startTime:     time.Now(),
		log:           log,
		gauges:        func() Gauges { return Gauges{} },
	}
}

// SetGaugeProvider wires the callback that reads live gauge values. Call
// before Run.
func (m *Monitor) SetGaugeProvider(fn func() Gauges) {
	if fn != nil {
		m.gauges = fn
	}
}

func (m *Monitor) TrackConnection()      { m.connections.Add(1) }
func (m *Monitor) TrackDisconnection()   { m.disconnections.Add(1) }
func (m *Monitor) TrackMessageReceived() { m.messagesReceived.Add(1) }
func (m *Monitor) TrackMessageSent()     { m.messagesSent.Add(1) }
func (m *Monitor) TrackError()           { m.errors.Add(1) }

// CurrentConnections is how many clients are connected right now.
func (m *Monitor) CurrentConnections() int64 {
	return m.connections.Load() - m.disconnections.Load()
}

func (m *Monitor) counters() Counters {
	return Counters{
		Connections:      m.connections.Load(),
		Disconnections:   m.disconnections.Load(),
		MessagesReceived: m.messagesReceived.Load(),
		MessagesSent:     m.messagesSent.Load(),
		Errors:           m.errors.Load(),
	}
}

// Capture records one sample and returns it.
func (m *Monitor) Capture() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	now := time.Now()
	s := Sample{
		Timestamp:  now.UnixMilli(),
		Elapsed:    now.Sub(m.startTime).Seconds(),
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryStats{
			HeapAllocMB:  float64(ms.HeapAlloc) / 1024 / 1024,
			HeapSysMB:    float64(ms.HeapSys) / 1024 / 1024,
			SysMB:        float64(ms.Sys) / 1024 / 1024,
			NumGC:        ms.NumGC,
			GCCPUPercent: ms.GCCPUFraction * 100,
		},
		Gauges:   m.gauges(),
		Counters: m.counters(),
	}
	m.mu.Lock()
	m.samples = append(m.samples, s)
	m.mu.Unlock()
	return s
}

// Document assembles the exportable artifact from everything captured so
// far.
func (m *Monitor) Document(running bool) Document {
	m.mu.Lock()
	samples := append([]Sample{}, m.samples...)
	m.mu.Unlock()
	var duration float64
	if len(samples) > 0 {
		duration = samples[len(samples)-1].Elapsed
	}
	return Document{
		StartTime: m.startTime.UnixMilli(),
		EndTime:   time.Now().UnixMilli(),
		Duration:  duration,
		SystemInfo: SystemInfo{
			CPUCount:  runtime.NumCPU(),
			Platform:  runtime.GOOS,
			Arch:      runtime.GOARCH,
			GoVersion: runtime.Version(),
		},
		Metrics:       samples,
		SocketMetrics: m.counters(),
		IsRunning:     running,
	}
}

// Flush forces an immediate save of the document and returns the bytes
// written, so the HTTP layer can hand the artifact straight back.
func (m *Monitor) Flush() ([]byte, error) {
	return m.save(true)
}

func (m *Monitor) save(running bool) ([]byte, error) {
	data, err := json.MarshalIndent(m.Document(running), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(m.outputFile, data, 0o644); err != nil {
		return nil, err
	}
	return data, nil
}

// Run samples until ctx is cancelled, autosaving along the way, then
// writes a final document marked not-running.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			if _, err := m.save(false); err != nil {
				m.log.Warnw("final metrics save failed", "err", err)
			}
			return ctx.Err()
		case <-ticker.C:
			m.Capture()
			count++
			if count%m.autosaveEvery == 0 {
				if _, err := m.save(true); err != nil {
					m.log.Warnw("metrics autosave failed", "err", err)
				}
			}
		}
	}
}
