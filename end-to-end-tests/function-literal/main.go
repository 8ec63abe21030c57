package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/newrelic/go-easy-profiling/flame"
)

func thingy(name string) string {
	return strings.ToUpper(name)
}

//flame
func work() {
	a := func(name string) error {
		if name == "" {
			return fmt.Errorf("missing name")
		}
		fmt.Println(thingy(name))
		return nil
	}

	err := a("foo")
	if err != nil {
		panic(err)
	}

	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		//noflame
		quiet := func() {
			fmt.Println("Hello, World async!")
		}
		quiet()
	}()
	wg.Wait()
}

func main() {
	work()
	flame.WriteTree(os.Stdout, flame.Spans())
	fmt.Println("Done")
}
