package main

import "PrepBot/client/prep-cli/cmd"

func main() {
	cmd.Execute()
}
