package main

import (
	"github.com/tanpawarit/sparkpath-gateway/cmd"
	_ "github.com/tanpawarit/sparkpath-gateway/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
