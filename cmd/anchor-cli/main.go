// Command anchor-cli builds, inspects, verifies and archives multi-contract
// commitment anchors.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
