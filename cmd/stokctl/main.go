// stokctl veritabanı bakımı ve toplu içe/dışa aktarma için komut satırı aracı.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
