package delivery

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type WorkerOptions struct {
	// IdleInterval is the pause after finding the queue empty.
	IdleInterval time.Duration
	// ErrorInterval is the pause after a cycle fails, e.g. when the database is unreachable.
	ErrorInterval time.Duration
	SendTimeout   time.Duration

	Logger *logrus.Entry
}

func (o *WorkerOptions) setDefaults() {
	if o.IdleInterval == 0 {
		o.IdleInterval = 10 * time.Second
	}
	if o.ErrorInterval == 0 {
		o.ErrorInterval = 1 * time.Second
	}
	if o.SendTimeout == 0 {
		o.SendTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
}

type PoolOptions struct {
	Workers int

	ObservePendingEvery time.Duration

	Worker WorkerOptions
}

func (o *PoolOptions) setDefaults() {
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.ObservePendingEvery == 0 {
		o.ObservePendingEvery = 10 * time.Second
	}
	o.Worker.setDefaults()
}

type QueueOptions struct {
	// SubscribersTable is read by EnqueueConfirmed to snapshot confirmed recipients.
	SubscribersTable pgx.Identifier
}

func (o *QueueOptions) setDefaults() {
	if len(o.SubscribersTable) == 0 {
		o.SubscribersTable = pgx.Identifier{"subscriptions"}
	}
}
