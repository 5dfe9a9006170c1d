// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "randstream_active_workers",
	Help: "Count of stream workers currently running.",
})

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(activeWorkers)
}
