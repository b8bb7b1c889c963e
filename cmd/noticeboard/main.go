package main

import (
	"log"

	"github.com/MrSnakeDoc/noticeboard/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ noticeboard failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ noticeboard stopped with error: %v", err)
	}
}
