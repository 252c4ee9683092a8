package main

import (
	"os"

	"github.com/eikrt/dimensioner/server"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := server.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
