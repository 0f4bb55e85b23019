package main

import "github.com/bigislandtech/meetup-sync/internal/cli"

func main() {
	cli.Execute()
}
