package ldsm

import (
	"context"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func (e *Engine) registerMetrics() {
	meter := otel.Meter(instrumentationName)

	_, err := meter.Int64ObservableGauge(path.Join("housekeeping", "freeBytes"),
		metric.WithDescription("free bytes of monitored mounts"),
		metric.WithUnit("By"),
		metric.WithInt64Callback(e.observeFreeBytes),
	)
	if err != nil {
		e.logger.WithError(err).Warn("could not register metrics")
	}

	_, err = meter.Int64ObservableGauge(path.Join("housekeeping", "fillRate"),
		metric.WithDescription("estimated write speed on monitored mounts"),
		metric.WithUnit("By/s"),
		metric.WithInt64Callback(e.observeFillRate),
	)
	if err != nil {
		e.logger.WithError(err).Warn("could not register metrics")
	}
}

func mountAttributes(s MountStatus) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("mount", s.Mount.Path),
		attribute.String("severity", s.Severity.String()))
}

func (e *Engine) observeFreeBytes(_ context.Context, o metric.Int64Observer) error {
	for _, s := range e.Status() {
		o.Observe(s.Mount.Free, mountAttributes(s))
	}
	return nil
}

func (e *Engine) observeFillRate(_ context.Context, o metric.Int64Observer) error {
	for _, s := range e.Status() {
		o.Observe(s.FillRate, mountAttributes(s))
	}
	return nil
}
