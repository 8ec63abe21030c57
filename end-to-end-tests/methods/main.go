//flame
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/newrelic/go-easy-profiling/flame"
)

type Shape interface {
	Area() float64
}

type Square struct {
	side float64
}

func (s Square) Area() float64 {
	return s.side * s.side
}

func (s Square) Side() float64 {
	return s.side
}

type Circle struct {
	radius float64
}

func (c *Circle) Area() float64 {
	return math.Pi * c.radius * c.radius
}

type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}

//go:nosplit
func fast(x float64) float64 {
	return x * 2
}

func total(shapes ...Shape) float64 {
	var sum float64
	for _, s := range shapes {
		sum += s.Area()
	}
	return fast(sum)
}

//noflame
func main() {
	stack := &Stack[Shape]{}
	stack.Push(Square{side: 2})
	stack.Push(&Circle{radius: 1})
	fmt.Printf("%.2f\n", total(stack.items...))
	flame.WriteTree(os.Stdout, flame.Spans())
}
