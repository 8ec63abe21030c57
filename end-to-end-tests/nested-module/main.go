package main

import (
	"os"

	"github.com/newrelic/go-easy-profiling/end-to-end-tests/nested-module/inner"
	"github.com/newrelic/go-easy-profiling/flame"
)

func main() {
	inner.C()
	flame.WriteTree(os.Stdout, flame.Spans())
}
