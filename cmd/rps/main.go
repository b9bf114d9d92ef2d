package main

import (
	"github.com/mdsim/ratedrps-go/internal/cli"
)

func main() {
	cli.Execute()
}
