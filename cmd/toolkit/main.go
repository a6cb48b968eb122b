package main

import "github.com/ZenFlux/rollup-toolkit/cmd"

func main() {
	cmd.Execute()
}
