package main

import "github.com/KaramelBytes/airfit-cli/cmd"

func main() {
	cmd.Execute()
}
