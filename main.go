package main

import (
	"github.com/ALSchwalm/assimilation/build-tools/cmd"
)

func main() {
	cmd.Execute()
}
