// Command tinyapp serves the TinyApp URL shortener.
package main

import (
	"github.com/patric-chuzhbe/tinyapp/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		panic(err)
	}
}
