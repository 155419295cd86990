package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets shapes the work execution duration histogram.
	DurationBuckets []float64
	// SizeBuckets shapes the data payload size histogram.
	SizeBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	notificationSentTotal    *prom.CounterVec
	notificationDroppedTotal *prom.CounterVec
	dataPayloadBytes         *prom.HistogramVec
	dataSendFailureTotal     *prom.CounterVec
	workSubmittedTotal       *prom.CounterVec
	workDurationSeconds      *prom.HistogramVec
	workRejectedTotal        *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "taskmsg"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	durationBuckets := opts.DurationBuckets
	if len(durationBuckets) == 0 {
		durationBuckets = prom.DefBuckets
	}
	sizeBuckets := opts.SizeBuckets
	if len(sizeBuckets) == 0 {
		sizeBuckets = prom.ExponentialBuckets(8, 2, 8)
	}

	sentVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "notification_sent_total",
		Help:      "Total number of delivered notifications.",
	}, []string{"task", "position"})
	droppedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "notification_dropped_total",
		Help:      "Total number of notifications dropped before delivery.",
	}, []string{"task", "reason"})
	payloadVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "data_payload_bytes",
		Help:      "Size of payloads committed to task data channels.",
		Buckets:   sizeBuckets,
	}, []string{"task"})
	sendFailureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "data_send_failure_total",
		Help:      "Total number of data sends that failed before commit.",
	}, []string{"task", "reason"})
	submittedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "work_submitted_total",
		Help:      "Total number of work items accepted by dispatchers.",
	}, []string{"dispatcher"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "work_duration_seconds",
		Help:      "Work function execution duration in seconds.",
		Buckets:   durationBuckets,
	}, []string{"dispatcher", "outcome"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "work_rejected_total",
		Help:      "Total number of work items dropped before execution.",
	}, []string{"dispatcher", "reason"})

	var err error
	if sentVec, err = registerCollector(reg, sentVec); err != nil {
		return nil, err
	}
	if droppedVec, err = registerCollector(reg, droppedVec); err != nil {
		return nil, err
	}
	if payloadVec, err = registerCollector(reg, payloadVec); err != nil {
		return nil, err
	}
	if sendFailureVec, err = registerCollector(reg, sendFailureVec); err != nil {
		return nil, err
	}
	if submittedVec, err = registerCollector(reg, submittedVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		notificationSentTotal:    sentVec,
		notificationDroppedTotal: droppedVec,
		dataPayloadBytes:         payloadVec,
		dataSendFailureTotal:     sendFailureVec,
		workSubmittedTotal:       submittedVec,
		workDurationSeconds:      durationVec,
		workRejectedTotal:        rejectedVec,
	}, nil
}

// RecordNotificationSent records one delivered notification.
func (m *MetricsExporter) RecordNotificationSent(taskName string, front bool) {
	if m == nil {
		return
	}
	m.notificationSentTotal.WithLabelValues(normalizeLabel(taskName, "unknown"), positionLabel(front)).Inc()
}

// RecordNotificationDropped records a notification drop.
func (m *MetricsExporter) RecordNotificationDropped(taskName string, reason string) {
	if m == nil {
		return
	}
	m.notificationDroppedTotal.WithLabelValues(normalizeLabel(taskName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordDataSent records one committed payload.
func (m *MetricsExporter) RecordDataSent(taskName string, bytes int) {
	if m == nil {
		return
	}
	m.dataPayloadBytes.WithLabelValues(normalizeLabel(taskName, "unknown")).Observe(float64(bytes))
}

// RecordDataSendFailure records a data send failure.
func (m *MetricsExporter) RecordDataSendFailure(taskName string, reason string) {
	if m == nil {
		return
	}
	m.dataSendFailureTotal.WithLabelValues(normalizeLabel(taskName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordWorkSubmitted records one accepted work item.
func (m *MetricsExporter) RecordWorkSubmitted(dispatcherName string) {
	if m == nil {
		return
	}
	m.workSubmittedTotal.WithLabelValues(normalizeLabel(dispatcherName, "unknown")).Inc()
}

// RecordWorkExecuted records one work function invocation.
func (m *MetricsExporter) RecordWorkExecuted(dispatcherName string, duration time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.workDurationSeconds.WithLabelValues(normalizeLabel(dispatcherName, "unknown"), outcomeLabel(ok)).Observe(duration.Seconds())
}

// RecordWorkRejected records a work item rejection.
func (m *MetricsExporter) RecordWorkRejected(dispatcherName string, reason string) {
	if m == nil {
		return
	}
	m.workRejectedTotal.WithLabelValues(normalizeLabel(dispatcherName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func positionLabel(front bool) string {
	if front {
		return "front"
	}
	return "back"
}

func outcomeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "panic"
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
