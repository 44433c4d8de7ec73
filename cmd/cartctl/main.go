// Command cartctl manages the local Flexova cart and keeps it in sync with
// the storefront API.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	if err := execute(context.Background(), root, a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
