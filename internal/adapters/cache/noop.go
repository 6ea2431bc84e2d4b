package cache

import (
	"context"
	"time"
)

// Noop never stores anything; every Get is a miss.
type Noop struct{}

// Compile-time check that Noop satisfies Cache.
var _ Cache = Noop{}

func (Noop) Get(context.Context, string, any) error { return ErrMiss }

func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

func (Noop) Close() error { return nil }
