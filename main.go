package main

import "github.com/khanhnv2901/domain-insight/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
