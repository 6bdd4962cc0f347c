// Package gomockextra provides gomock helpers for tests that run mocks on several goroutines.
package gomockextra

import (
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
)

// GoroutineReporter returns a reporter that works with multiple goroutines.
//
// Mocks called from a publisher or registry goroutine cannot stop the test
// with FailNow, so the reporter panics on Fatalf to crash the test instead of
// letting it block forever on a failed expectation.
func GoroutineReporter(t testing.TB) gomock.TestHelper {
	return &goroutineReporter{TB: t}
}

type goroutineReporter struct {
	TB testing.TB
}

func (r *goroutineReporter) Errorf(format string, args ...interface{}) {
	r.TB.Helper()
	r.TB.Errorf(format, args...)
}

func (r *goroutineReporter) Fatalf(format string, args ...interface{}) {
	r.TB.Helper()
	panic(fmt.Sprintf(format, args...))
}

func (r *goroutineReporter) Helper() {
	r.TB.Helper()
}
