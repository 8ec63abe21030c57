// Package console collects diagnostics produced while instrumenting an
// application and prints them once instrumentation is complete.
package console

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/fatih/color"
)

const (
	InfoHeader string = "INFO"
	WarnHeader string = "WARN"
)

var (
	infoColor = color.New(color.FgCyan, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
)

type ConsolePrinter struct {
	mu       sync.Mutex
	appRoot  string
	comments []string
}

// initialize this if you want to use it at the start of the program
var printer *ConsolePrinter

func EnableConsolePrinter(applicationPath string) {
	printer = &ConsolePrinter{
		appRoot: filepath.Base(applicationPath),
	}
}

func WriteAll() {
	if printer != nil {
		printer.Flush()
	}
}

// Info records an informational message about a node.
// The message is the main line, and additionalInfo is a list of optional
// lines that will be printed below it.
func Info(pkg *decorator.Package, node dst.Node, message string, additionalInfo ...string) {
	printer.Add(pkg, node, InfoHeader, message, additionalInfo...)
}

// Warn records a warning about a node.
func Warn(pkg *decorator.Package, node dst.Node, message string, additionalInfo ...string) {
	printer.Add(pkg, node, WarnHeader, message, additionalInfo...)
}

// Add appends a new message to the printer.
// Messages are only written once Flush is called.
func (p *ConsolePrinter) Add(pkg *decorator.Package, node dst.Node, header, message string, additionalInfo ...string) {
	if p == nil {
		return
	}

	pos := getPosition(pkg, node, p.appRoot)

	b := strings.Builder{}
	b.WriteString(colorize(header))
	b.WriteByte(':')
	b.WriteByte(' ')

	if pos != "" {
		b.WriteString(pos)
		b.WriteByte(' ')
	}
	b.WriteString(message)
	for _, info := range additionalInfo {
		b.WriteString("\n\t")
		b.WriteString(info)
	}

	p.mu.Lock()
	p.comments = append(p.comments, b.String())
	p.mu.Unlock()
}

// Flush logs all the collected messages and clears them.
func (p *ConsolePrinter) Flush() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.comments {
		log.Println(c)
	}
	p.comments = []string{}
}

func colorize(header string) string {
	switch header {
	case InfoHeader:
		return infoColor.Sprint(header)
	case WarnHeader:
		return warnColor.Sprint(header)
	}
	return fmt.Sprint(header)
}
