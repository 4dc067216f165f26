package main

import (
	"github.com/swipswaps/cursor-appimage-installer/cmd/cursor-installer/cmd"
)

func main() {
	cmd.Execute()
}
