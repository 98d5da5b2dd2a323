package intake

import (
	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cardsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_cards_processed_total",
			Help: "Total number of processed cards",
		},
		[]string{"status"}, // status: success, error
	)

	fieldsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_fields_resolved_total",
			Help: "Card fields by resolution outcome",
		},
		[]string{"field", "resolved"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardscan_stage_duration_seconds",
			Help:    "Card processing duration by stage",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"stage"}, // stage: ocr, extract, total
	)

	fragmentsRecognized = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardscan_ocr_fragments",
			Help:    "Number of OCR fragments per card",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)
)

func observeRecord(rec card.Record) {
	record := func(field string, ok bool) {
		resolved := "false"
		if ok {
			resolved = "true"
		}
		fieldsResolvedTotal.WithLabelValues(field, resolved).Inc()
	}
	record("name", rec.Name != card.UnknownName)
	record("email", rec.Email != "")
	record("phone", rec.Phone != "")
	record("address", rec.Address != card.AddressNotProvided)
}
