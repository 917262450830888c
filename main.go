package main

import "example.com/HoloTools/cmd"

func main() {
	cmd.Execute()
}
