// gzgen populates a parallel gz tree and the gzip manifest from a www
// directory. Safe to re-run; the work is incremental on mtime.
//
// Usage: gzgen <www-dir> <gz-dir> <manifest.json>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/gen"
)

func main() {
	flag.Parse()
	if flag.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: gzgen <www-dir> <gz-dir> <manifest.json>")
		os.Exit(2)
	}

	fs := filesystem.NewLocalFilesystem()
	if err := gen.PopulateGzip(fs, flag.Arg(0), flag.Arg(1), flag.Arg(2)); err != nil {
		log.Fatalln(err)
	}
}
