// FilePath: cmd/main.go
package main

import (
	"fmt"
	"os"

	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Initialize version info
	nuts.InitVersion()

	if err := RootCommand().Execute(); err != nil {
		nuts.L.Errorf("[Main] %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		" _   _ _           _   _       _     ",
		"| | | (_)_   _____| | | |_   _| |__  ",
		"| |_| | \\ \\ / / _ \\ |_| | | | | '_ \\ ",
		"|  _  | |\\ V /  __/  _  | |_| | |_) |",
		"|_| |_|_| \\_/ \\___|_| |_|\\__,_|_.__/ ",
		"......................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
