package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNotFound = "not_found"
)

var (
	blobAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordstore_blob_attempts_total",
		Help: "Remote blob store attempts by operation and outcome",
	}, []string{"op", "outcome"})

	blobRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordstore_blob_retries_total",
		Help: "Remote blob store retries by operation",
	}, []string{"op"})

	blobFallbackWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordstore_blob_fallback_writes_total",
		Help: "Blobs written to the local fallback directory",
	}, []string{"collection"})
)

var storageTracer = otel.Tracer("recordstore.storage")
