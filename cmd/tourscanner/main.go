package main

import "TourScanner/internal/cli"

func main() {
	cli.Execute()
}
