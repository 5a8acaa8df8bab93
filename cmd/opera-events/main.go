package main

import "github.com/pfrederiksen/opera-events/internal/cli"

func main() {
	cli.Execute()
}
