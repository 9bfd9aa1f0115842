// pagetint - A web page colour palette and contrast analyser
//
// pagetint extracts colour palettes from web pages and audits their text
// contrast against WCAG AA.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import "github.com/jmylchreest/pagetint/internal/cli"

func main() {
	cli.Execute()
}
