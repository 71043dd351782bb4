package main

import (
	"github.com/Paintersrp/reeve/internal/cli"
	"github.com/Paintersrp/reeve/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
