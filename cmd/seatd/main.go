package main

import "seatrotation/cmd"

func main() {
	cmd.Execute()
}
