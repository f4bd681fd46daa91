// slkv is a local command-line demo of the store: no network access, one
// process, one file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nainya/slkv/internal/logger"
	"github.com/nainya/slkv/pkg/slkv"
)

var (
	dbPath   = flag.String("db", "slkv.db", "Database file path")
	capacity = flag.Uint64("capacity", 64<<20, "Fixed file size in bytes (multiple of 4096)")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{Level: "info", Pretty: true})
	env, err := slkv.Open(*dbPath, *capacity, slkv.Options{Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "slkv: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	switch args[0] {
	case "get":
		cmdGet(env, args[1:])
	case "put":
		cmdPut(env, args[1:])
	case "del":
		cmdDel(env, args[1:])
	case "iterate":
		cmdIterate(env, args[1:])
	case "stats":
		cmdStats(env)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: slkv [-db path] [-capacity n] <get|put|del|iterate|stats> [args]")
}

func cmdGet(env *slkv.Env, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: get <key>")
		os.Exit(1)
	}
	tx, err := env.BeginRead()
	fatalIf(err)
	defer tx.Close()

	v, ok := tx.Get([]byte(args[0]))
	if !ok {
		fmt.Println("(not found)")
		return
	}
	fmt.Println(string(v))
}

func cmdPut(env *slkv.Env, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: put <key> <value>")
		os.Exit(1)
	}
	w, err := env.BeginWrite()
	fatalIf(err)

	inserted := w.Put([]byte(args[0]), []byte(args[1]))
	fatalIf(w.Commit())

	if inserted {
		fmt.Println("inserted")
	} else {
		fmt.Println("duplicate (no-op): this exact key/value pair is already stored")
	}
}

func cmdDel(env *slkv.Env, args []string) {
	if len(args) != 1 && len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: del <key> [value]")
		os.Exit(1)
	}
	w, err := env.BeginWrite()
	fatalIf(err)

	var found bool
	if len(args) == 2 {
		found = w.Del([]byte(args[0]), []byte(args[1]))
	} else {
		found = w.Del([]byte(args[0]))
	}
	fatalIf(w.Commit())

	if found {
		fmt.Println("deleted")
	} else {
		fmt.Println("(not found)")
	}
}

func cmdIterate(env *slkv.Env, args []string) {
	var start []byte
	if len(args) == 1 {
		start = []byte(args[0])
	}
	tx, err := env.BeginRead()
	fatalIf(err)
	defer tx.Close()

	it := tx.Iterate(start)
	for it.Valid() {
		fmt.Printf("%s=%s\n", it.Key(), it.Value())
		it.Next()
	}
}

func cmdStats(env *slkv.Env) {
	s := env.Stats()
	fmt.Printf("capacity:       %d\n", s.Capacity)
	fmt.Printf("last_page:      %d\n", s.LastPage)
	fmt.Printf("free_list_head: %d\n", s.FreeListHead)
	fmt.Printf("main_root:      %d\n", s.MainRoot)
	fmt.Printf("rc_root:        %d\n", s.RCRoot)

	tx, err := env.BeginRead()
	fatalIf(err)
	defer tx.Close()
	fmt.Printf("reachable_pages: %d\n", len(tx.ReachablePages()))
}

func fatalIf(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "slkv: %v\n", err)
		os.Exit(1)
	}
}
