// Command migrate applies SQL migrations from the migrations directory
// against the database named by DATABASE_URL.
//
//	migrate up            apply all pending migrations
//	migrate down [n]      roll back n migrations (default 1)
//	migrate version       print current version
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fatalf("DATABASE_URL environment variable is required")
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		fatalf("migration init failed: %v", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		n := 1
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil {
				fatalf("invalid step count %q", args[1])
			}
		}
		err = m.Steps(-n)
	case "version":
		v, dirty, vErr := m.Version()
		if vErr != nil {
			fatalf("version: %v", vErr)
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
		return
	default:
		usage()
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fatalf("migration failed: %v", err)
	}
	fmt.Println("done")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down [n] | version")
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
