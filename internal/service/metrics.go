package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// outcome: processed, ignored, duplicate, error, invalid_signature.
	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Eventos de webhook da Stripe recebidos, por tipo e resultado.",
		},
		[]string{"type", "outcome"},
	)

	workflowTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_workflow_triggers_total",
			Help: "Disparos para o sistema de automação, por workflow e resultado.",
		},
		[]string{"workflow", "result"},
	)

	usageWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_usage_warnings_total",
		Help: "Avisos de limite de uso disparados.",
	})

	checkoutRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_checkout_rejected_total",
		Help: "Checkouts concluídos com plano inválido na metadata.",
	})

	observerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_webhook_observer_failures_total",
		Help: "Falhas (erro ou pânico) em observadores de webhook.",
	})
)
