package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/prepwise/internal/config"
)

func main() {
	in := flag.String("in", "", "backup file (default <database_path>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := *in
	if src == "" {
		src = cfg.DatabasePath + ".bak"
	}
	dst := cfg.DatabasePath

	if err := restore(src, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database %s restored from %s.\n", dst, src)
}

// restore copies src over dst. The server must be stopped first.
func restore(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp := dst + ".restore"
	dstFile, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return err
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// stale journal files would be replayed over the restored data
	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")
	return os.Rename(tmp, dst)
}
