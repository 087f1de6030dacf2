// w-chat serves the chat front end: two pages and a static asset directory.
package main

import (
	"os"

	"github.com/Gakyra/w-chat/cmd/w-chat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
