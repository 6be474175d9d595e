package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rostersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosterforge_rosters_created_total",
		Help: "Rosters created since start.",
	})
	rosterMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rosterforge_roster_mutations_total",
		Help: "Accepted roster mutations by operation.",
	}, []string{"op"})
	validationsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosterforge_validations_total",
		Help: "Validation passes run.",
	})
	rosterPoints = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rosterforge_roster_points",
		Help: "Current total points per roster.",
	}, []string{"roster_id"})
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rosterforge_stream_clients",
		Help: "Connected roster stream subscribers.",
	})
)
