package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "messagebox"

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Messages sent, by addressing mode.",
	}, []string{"mode"})

	MessagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_read_total",
		Help:      "Messages whose read status flipped to true.",
	})

	SoftDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "soft_deletes_total",
		Help:      "Soft deletes, by entity and side.",
	}, []string{"entity", "side"})

	ThreadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threads_created_total",
		Help:      "Threads created.",
	})

	OrphansPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphans_purged_total",
		Help:      "Direct messages removed after both sides deleted them.",
	})
)

const (
	ModeDirect = "direct"
	ModeThread = "thread"

	EntityMessage = "message"
	EntityThread  = "thread"

	SideSender      = "sender"
	SideReceiver    = "receiver"
	SideParticipant = "participant"
)
