// Package nrflame mirrors flame guards into a New Relic transaction, so every
// instrumented function also shows up as a segment of that transaction.
package nrflame

import (
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/newrelic/go-easy-profiling/flame"
)

type transactionHook struct {
	txn *newrelic.Transaction
}

// Hook returns a flame.Hook that starts a segment on txn for every guard.
// A nil transaction produces segments that are never recorded.
func Hook(txn *newrelic.Transaction) flame.Hook {
	return transactionHook{txn: txn}
}

func (h transactionHook) Start(name string) func() {
	segment := h.txn.StartSegment(name)
	return segment.End
}

// Attach installs a hook for txn and returns a function that removes it.
func Attach(txn *newrelic.Transaction) (detach func()) {
	flame.SetHook(Hook(txn))
	return func() { flame.SetHook(nil) }
}
