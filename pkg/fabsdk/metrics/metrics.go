/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	"github.com/hyperledger/fabric-lib-go/common/metrics/prometheus"
	"github.com/pkg/errors"
)

const (
	// ProviderPrometheus exposes metrics on /metrics
	ProviderPrometheus = "prometheus"
	// ProviderDisabled discards all metrics
	ProviderDisabled = "disabled"
)

var (
	txResults = metrics.CounterOpts{
		Namespace:    "claims",
		Subsystem:    "tx",
		Name:         "results_total",
		Help:         "The number of submitted transactions by result.",
		LabelNames:   []string{"result"},
		StatsdFormat: "%{#fqname}.%{result}",
	}
	txDuration = metrics.HistogramOpts{
		Namespace: "claims",
		Subsystem: "tx",
		Name:      "duration_seconds",
		Help:      "The time from proposal to commit, or to failure, of a submitted transaction.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}
	queriesReceived = metrics.CounterOpts{
		Namespace:    "claims",
		Subsystem:    "query",
		Name:         "received_total",
		Help:         "The number of chaincode queries received.",
		LabelNames:   []string{"fcn"},
		StatsdFormat: "%{#fqname}.%{fcn}",
	}
	queriesFailed = metrics.CounterOpts{
		Namespace:    "claims",
		Subsystem:    "query",
		Name:         "failed_total",
		Help:         "The number of chaincode queries that failed.",
		LabelNames:   []string{"fcn"},
		StatsdFormat: "%{#fqname}.%{fcn}",
	}
	queryDuration = metrics.HistogramOpts{
		Namespace:    "claims",
		Subsystem:    "query",
		Name:         "duration_seconds",
		Help:         "The time to complete a chaincode query.",
		LabelNames:   []string{"fcn"},
		StatsdFormat: "%{#fqname}.%{fcn}",
	}
)

// ClientMetrics contains the metrics recorded by the channel client
type ClientMetrics struct {
	TxResults       metrics.Counter
	TxDuration      metrics.Histogram
	QueriesReceived metrics.Counter
	QueriesFailed   metrics.Counter
	QueryDuration   metrics.Histogram
}

// NewClientMetrics builds a new instance of ClientMetrics
func NewClientMetrics(p metrics.Provider) *ClientMetrics {
	return &ClientMetrics{
		TxResults:       p.NewCounter(txResults),
		TxDuration:      p.NewHistogram(txDuration),
		QueriesReceived: p.NewCounter(queriesReceived),
		QueriesFailed:   p.NewCounter(queriesFailed),
		QueryDuration:   p.NewHistogram(queryDuration),
	}
}

// NewProvider returns the metrics provider with the given name.
func NewProvider(name string) (metrics.Provider, error) {
	switch name {
	case ProviderPrometheus:
		return &prometheus.Provider{}, nil
	case ProviderDisabled, "":
		return &disabled.Provider{}, nil
	default:
		return nil, errors.Errorf("unsupported metrics provider: %s", name)
	}
}
