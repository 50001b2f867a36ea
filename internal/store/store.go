package store

import (
	"context"
)

// Bus is the connection management surface of the publish/subscribe bus.
// RedisBus implements it; the operations server only needs these methods.
type Bus interface {
	Close() error
	Ping(ctx context.Context) error
}
