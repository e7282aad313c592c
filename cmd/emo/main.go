// cmd/emo/main.go is the thin external collaborator spec.md §1 carves out
// of the core: argument parsing, file reading, the REPL loop, and
// terminal-aware diagnostics. None of it participates in the language
// semantics — it only drives internal/vm.Interpret.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"emo/internal/errors"
	"emo/internal/natives"
	"emo/internal/vm"
)

// Exit codes per spec.md §6.
const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	switch len(os.Args) {
	case 1:
		repl()
	case 2:
		runFile(os.Args[1])
	default:
		fmt.Fprintln(os.Stderr, "Usage: emo [script]")
		os.Exit(64)
	}
}

func newVM() *vm.VM {
	v := vm.New(vm.WithNativeClock())
	natives.RegisterDB(v)
	natives.RegisterNet(v)
	natives.RegisterUtil(v)
	natives.RegisterCrypto(v)
	return v
}

func runFile(path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		reportIOError(err)
		os.Exit(exitIOError)
	}

	v := newVM()
	defer v.Close()

	result, langErr := v.Interpret(string(source))
	if langErr != nil {
		reportLangError(langErr)
	}
	switch result {
	case vm.InterpretCompileError:
		os.Exit(exitCompileError)
	case vm.InterpretRuntimeError:
		os.Exit(exitRuntimeError)
	}
}

func repl() {
	fmt.Println("emo REPL | type 'exit' to quit")
	v := newVM()
	defer v.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" {
			break
		}
		if _, langErr := v.Interpret(line); langErr != nil {
			reportLangError(langErr)
		}
	}
}

// reportLangError prints a compile or runtime error, in red when stderr is
// a terminal (spec.md §A's styled-messages behavior, gated by go-isatty
// the way the teacher's REPL gates its own colored output).
func reportLangError(err *errors.LangError) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s\x1b[0m\n", err.Error())
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

func reportIOError(err error) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31merror:\x1b[0m %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
