package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ___        _ _       _    _                         _
 / __|_ __ _(_) |_ __ | |_ | |__  ___  __ _ _ _ __ __| |
 \__ \ V  V / |  _/ _|| ' \| '_ \/ _ \/ _` + "`" + ` | '_/ _` + "`" + ` |
 |___/\_/\_/|_|\__\__||_||_|_.__/\___/\__,_|_| \__,_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  LLM Gateway Console - Version %s\x1b[0m\n\n", Version)
}
