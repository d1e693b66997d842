package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "submissions_created_total",
		Help: "Total number of sell submissions created",
	})

	SubmissionsApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "submissions_approved_total",
		Help: "Total number of submissions approved into inventory",
	})

	SubmissionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_rejected_total",
		Help: "Total number of rejected submissions",
	}, []string{"by"})

	NegotiationOffersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiation_offers_total",
		Help: "Total number of negotiation offers made",
	}, []string{"offered_by"})

	NegotiationActionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "negotiation_actions_failed_total",
		Help: "Total number of rejected negotiation actions",
	}, []string{"operation", "kind"})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of committed checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout transactions",
		Buckets: prometheus.DefBuckets,
	})

	BooksSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_sold_total",
		Help: "Total number of books sold",
	})

	BookCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_requests_total",
		Help: "Book detail cache lookups",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
