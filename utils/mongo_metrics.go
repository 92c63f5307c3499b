package utils

import (
	"sync/atomic"

	"go.mongodb.org/mongo-driver/event"
)

var checkedOut int64

// NewPoolMonitor mirrors pool checkouts into the mongo_pool_checked_out_connections gauge.
func NewPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.GetSucceeded:
				MongoPoolConnections.Set(float64(atomic.AddInt64(&checkedOut, 1)))
			case event.ConnectionReturned:
				MongoPoolConnections.Set(float64(atomic.AddInt64(&checkedOut, -1)))
			case event.PoolCleared, event.PoolClosedEvent:
				atomic.StoreInt64(&checkedOut, 0)
				MongoPoolConnections.Set(0)
			}
		},
	}
}
