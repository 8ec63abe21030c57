//flame
package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/newrelic/go-easy-profiling/flame"
)

func index(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "hello world")
}

func greeting(name string) string {
	if name == "" {
		return "hello stranger"
	}
	return "hello " + name
}

func hello(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, greeting(r.URL.Query().Get("name")))
}

//noflame
func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", index)
	mux.HandleFunc("/hello", hello)

	for _, target := range []string{"/", "/hello?name=gopher"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		fmt.Println(rec.Body.String())
	}

	flame.WriteTree(os.Stdout, flame.Spans())
}
