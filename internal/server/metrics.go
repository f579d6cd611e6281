package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	problemsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taiga_problems_created_total",
		Help: "Number of problem descriptors created.",
	})

	problemsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taiga_problems_deleted_total",
		Help: "Number of problem descriptors deleted.",
	})

	partitionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taiga_partition_mutations_total",
		Help: "Number of fix/unfix mutations applied to problem descriptors.",
	}, []string{"op"})

	projectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taiga_projection_requests_total",
		Help: "Number of vector projection requests served.",
	}, []string{"direction"})
)
