package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlinePlayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_online_players",
		Help: "Players currently registered with the presence manager",
	})
	ActiveParties = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_parties",
		Help: "Parties currently open in the lobby manager",
	})
	PendingMatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_pending_matches",
		Help: "Arranged matches waiting for both confirmations",
	})
	ActiveMatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_active_matches",
		Help: "Matches with live runtime state",
	})
	MatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_match_outcomes_total",
			Help: "Terminated matches by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(OnlinePlayers, ActiveParties, PendingMatches, ActiveMatches, MatchOutcomes)
}
