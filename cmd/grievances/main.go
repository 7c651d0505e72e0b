package main

import "bbmp-grievances/cmd/grievances/cmd"

func main() {
	cmd.Execute()
}
