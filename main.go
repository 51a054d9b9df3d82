// Completion: 100% - Process entry point
package main

import "os"

func main() {
	os.Exit(RunCLI(os.Args[1:]))
}
