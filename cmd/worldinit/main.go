// Command worldinit seeds the bbolt database with the stock dungeon's room
// definitions. Run it once before first boot, or again to reset rooms to
// their defaults; accounts and characters are left untouched.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/muddy-beach/beachmud/pkg/boltstore"
	"github.com/muddy-beach/beachmud/pkg/server"
)

func main() {
	boltPath := flag.String("bolt", "beachmud.db", "Path to bbolt database")
	flag.Parse()

	store, err := boltstore.Open(*boltPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %v\n", *boltPath, err)
		os.Exit(1)
	}
	defer store.Close()

	if err := server.SeedRooms(store); err != nil {
		fmt.Fprintf(os.Stderr, "seeding rooms: %v\n", err)
		os.Exit(1)
	}

	rooms, err := store.AllRooms()
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifying rooms: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d rooms into %s\n", len(rooms), *boltPath)
}
