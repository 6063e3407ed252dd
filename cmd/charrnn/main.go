package main

import "charrnn/cmd/charrnn/cmd"

func main() {
	cmd.Execute()
}
