package main

import "uru_backend/internal/app"

func main() {
	app.Run()
}
