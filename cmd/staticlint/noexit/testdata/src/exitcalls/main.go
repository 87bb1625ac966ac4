package main

import (
	"log"
	"os"
	sys "os"
)

type exiter struct{}

func (exiter) Exit(code int) {}

func cleanup() {}

func main() {
	defer cleanup()

	os.Exit(1)                // want "os.Exit called in main.main skips deferred calls"
	sys.Exit(2)               // want "os.Exit called in main.main skips deferred calls"
	log.Fatal("boom")         // want "log.Fatal called in main.main skips deferred calls"
	log.Fatalf("boom %d", 1)  // want "log.Fatalf called in main.main skips deferred calls"
	func() { os.Exit(3) }()   // want "os.Exit called in main.main skips deferred calls"
	log.Println("still fine")
	exiter{}.Exit(0)
}

func helper() {
	os.Exit(4)
}
