package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hijjiri/todo-api/internal/client"
	"github.com/hijjiri/todo-api/internal/tui"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8000", "todo HTTP API base URL")
	flag.Parse()

	if err := tui.Run(client.New(*addr)); err != nil {
		fmt.Fprintln(os.Stderr, "todo_tui:", err)
		os.Exit(1)
	}
}
