package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
)

//go:embed assets/banner_color.ansi
var bannerColor string

//go:embed assets/banner_plain.txt
var bannerPlain string

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "plcbridge: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(w io.Writer) {
	if os.Getenv("NO_COLOR") != "" {
		fmt.Fprintln(w, bannerPlain)
		return
	}
	fmt.Fprintln(w, bannerColor)
}
