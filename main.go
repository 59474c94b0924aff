package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yellowduckie/duckline/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
	cmd.Execute()
}
