package main

import (
	"github.com/varnish-agent/cmd/agent"
)

func main() {
	agent.Execute()
}
