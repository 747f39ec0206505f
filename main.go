package main

import "stampxl/cmd"

func main() {
	cmd.Execute()
}
