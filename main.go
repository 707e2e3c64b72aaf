// video2voice/main.go
package main

import "video2voice/cmd"

func main() {
	cmd.Execute()
}
