// SPDX-License-Identifier: MIT

// Command leakctl drives the CPA and t-test devices from raw binary sample
// files and writes the result streams next to each other in an output
// directory.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
