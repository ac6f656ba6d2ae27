// Command hastemap crawls a source tree and maintains a persistent index
// of haste module identifiers, with optional watch-mode incremental
// updates.
package main

import "github.com/mvp-joe/hastemap/internal/cli"

func main() {
	cli.Execute()
}
