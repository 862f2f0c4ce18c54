package main

import "github.com/btholt/discord-unifi/cmd"

func main() {
	cmd.Execute()
}
