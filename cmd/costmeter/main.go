package main

import "github.com/metronai/costmeter/internal/cli"

func main() {
	cli.Execute()
}
