package main

import (
	"log"

	"github.com/WIlski54/Leseassistent/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatal(err.Error())
	}
}
