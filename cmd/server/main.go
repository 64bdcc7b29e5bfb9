package main

import "instagram-backend/cmd"

func main() {
	cmd.Run()
}
