package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/23skdu/longbow-bodkin/internal/head"
)

var seqLen = flag.Int("t", 8, "Sequence length to build the mask for")

func main() {
	flag.Parse()

	n := *seqLen
	mask, err := head.CausalMask(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data := mask.Data()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if data[i*n+j] != 0 {
				fmt.Print("1 ")
			} else {
				fmt.Print(". ")
			}
		}
		fmt.Println()
	}
}
