package main

import (
	"os"

	"github.com/ivolevy/grupo5-usuarios-sub001/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
