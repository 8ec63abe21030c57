//flame
package inner

func a() {}

//flame
func b() {
	a()
}

// C is the exported entry point; it records no span of its own.
//
//noflame
func C() {
	b()
}
