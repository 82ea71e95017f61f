package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GiveawaysCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roulette_giveaways_created_total",
		Help: "Giveaways successfully created and published.",
	})

	GiveawayJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roulette_giveaway_joins_total",
		Help: "Accepted giveaway join requests.",
	})

	GiveawayDraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roulette_giveaway_draws_total",
		Help: "Completed giveaway draws.",
	})

	ChargesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roulette_charges_total",
		Help: "Completed balance charges by feature kind.",
	}, []string{"kind"})

	DonationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roulette_donations_total",
		Help: "Confirmed external payments credited to stars balances.",
	})
)
