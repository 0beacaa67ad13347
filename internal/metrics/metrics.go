package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "sources_fetched_total",
			Help:      "Source fetch attempts by outcome",
		},
		[]string{"status"},
	)

	itemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "items_collected_total",
			Help:      "Raw items collected from all sources",
		},
	)

	duplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "duplicates_filtered_total",
			Help:      "Items dropped because their link was already seen",
		},
	)

	cappedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "items_capped_total",
			Help:      "Items dropped by the per-category cap",
		},
	)

	translationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "translations_total",
			Help:      "Translation calls by outcome",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsdigest",
			Name:      "run_duration_seconds",
			Help:      "Duration of one aggregation run",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	lastRunItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsdigest",
			Name:      "last_run_items",
			Help:      "Ranked items produced by the last run",
		},
	)
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesSucceeded       int64
	SourcesFailed          int64
	ItemsCollected         int64
	DuplicatesFiltered     int64
	ItemsCapped            int64
	SuccessfulTranslations int64
	FailedTranslations     int64
	CachedTranslations     int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunItems  int
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) RecordSource(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.SourcesSucceeded++
		sourcesTotal.WithLabelValues("ok").Inc()
	} else {
		m.SourcesFailed++
		sourcesTotal.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) AddItemsCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsCollected += int64(n)
	itemsTotal.Add(float64(n))
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
	duplicatesTotal.Add(float64(n))
}

func (m *Metrics) AddItemsCapped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsCapped += int64(n)
	cappedTotal.Add(float64(n))
}

func (m *Metrics) IncrementSuccessfulTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessfulTranslations++
	translationsTotal.WithLabelValues("ok").Inc()
}

func (m *Metrics) IncrementFailedTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedTranslations++
	translationsTotal.WithLabelValues("failed").Inc()
}

func (m *Metrics) IncrementCachedTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CachedTranslations++
	translationsTotal.WithLabelValues("cached").Inc()
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
	runDuration.Observe(duration.Seconds())
}

// SetLastRun marks a completed run that produced items ranked entries.
func (m *Metrics) SetLastRun(items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.LastRunItems = items
	m.IsHealthy = true
	lastRunItems.Set(float64(items))
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_succeeded":          m.SourcesSucceeded,
		"sources_failed":             m.SourcesFailed,
		"items_collected":            m.ItemsCollected,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"items_capped":               m.ItemsCapped,
		"successful_translations":    m.SuccessfulTranslations,
		"failed_translations":        m.FailedTranslations,
		"cached_translations":        m.CachedTranslations,
		"last_run_items":             m.LastRunItems,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
