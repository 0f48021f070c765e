package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(cardsPublished, cardImpressions, cardsExpired, searchesTotal, linkClicks)
}

var cardsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cards_published_total",
		Help: "Cards published through the intake flow, by group.",
	},
	[]string{"group"},
)

var cardImpressions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_card_impressions_total",
		Help: "Card impressions served by the selector.",
	},
	[]string{"kind"}, // 'unique', 'repeat'
)

var cardsExpired = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_cards_expired_total",
		Help: "Timed cards removed by the expiry sweeper.",
	},
)

var searchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_searches_total",
		Help: "Free-text searches, by whether any card matched.",
	},
	[]string{"hit"},
)

var linkClicks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_link_clicks_total",
		Help: "Outbound link clicks registered on cards.",
	},
)

func IncCardPublished(group string) { cardsPublished.WithLabelValues(group).Inc() }

func IncImpression(first bool) {
	kind := "repeat"
	if first {
		kind = "unique"
	}
	cardImpressions.WithLabelValues(kind).Inc()
}

func AddCardsExpired(n int) { cardsExpired.Add(float64(n)) }

func IncSearch(hit bool) {
	lbl := "miss"
	if hit {
		lbl = "hit"
	}
	searchesTotal.WithLabelValues(lbl).Inc()
}

func IncLinkClick() { linkClicks.Inc() }
