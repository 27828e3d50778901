package main

import (
	"schooltone/cmd"
)

func main() {
	cmd.Execute()
}
