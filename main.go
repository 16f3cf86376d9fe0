package main

import (
	"fmt"
	"os"

	"github.com/maxkimambo/taskflow/cmd"
	wferrors "github.com/maxkimambo/taskflow/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, wferrors.FormatForCLI(err))
		os.Exit(1)
	}
}
