package main

import "github.com/mcoot/comicguess/internal/cli"

func main() {
	cli.Execute()
}
