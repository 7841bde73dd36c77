package main

import "codefocus/cmd"

func main() {
	cmd.Execute()
}
