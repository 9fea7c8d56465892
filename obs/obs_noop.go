//go:build nometrics

package obs

import (
	"context"
	"time"
)

func ObserveRequest(string, string, time.Duration, string) {}

func RecordReload(string) {}

func RecordEggEvent(string, string) {}

func InitTracer(string, float64) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
