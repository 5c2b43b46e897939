package main

import "drumpractice/cmd"

func main() {
	cmd.Execute()
}
