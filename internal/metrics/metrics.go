package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugmarket_orders_created_total",
		Help: "Total number of orders created, by product line.",
	},
		[]string{"product"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugmarket_order_transitions_total",
		Help: "Total number of successful order state transitions.",
	},
		[]string{"product", "event"},
	)

	OrdersArchivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugmarket_orders_archived_total",
		Help: "Total number of orders moved to the archive, by final status.",
	},
		[]string{"status"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plugmarket_operation_errors_total",
		Help: "Total number of errors returned by order operations.",
	},
		[]string{"operation", "kind"},
	)

	NotificationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plugmarket_notification_errors_total",
		Help: "Total number of notification events that failed to be delivered.",
	})
)
