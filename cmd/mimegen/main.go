// mimegen walks a www directory and prints the extension to MIME type
// table the server consumes at start-up.
//
// Usage: mimegen <www-dir> > mimetypes.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/gen"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mimegen <www-dir>")
		os.Exit(2)
	}

	table, err := gen.MimeTable(filesystem.NewLocalFilesystem(), flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(table); err != nil {
		log.Fatalln(err)
	}
}
