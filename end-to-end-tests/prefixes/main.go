package main

import (
	"os"

	"github.com/newrelic/go-easy-profiling/flame"
)

type Lower struct{}

//flame "lower"
func (l Lower) a() {}

//flame "top"
func a() {
	Lower{}.a()
}

//flame
func b() {
	a()
}

//noflame
func c() {
	b()
}

func main() {
	c()
	flame.WriteTree(os.Stdout, flame.Spans())
}
