package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"room-relay/domain"
	"room-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Offline dump of stored relay entries. Only useful against a
// file-backed store; an in-memory relay leaves nothing behind.
func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	room := flag.String("room", "", "Restrict to one room code (default: all rooms)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db path")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "Timestamp", "Entry ID", "Payload"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	prefix := []byte("entry:")
	if *room != "" {
		prefix = repositories.RoomPrefix(domain.NormalizeRoom(*room))
	}

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				e, err := repositories.DecodeEntry(v)
				if err != nil {
					// Log and keep scanning instead of stopping the dump.
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append([]string{
					string(item.Key()),
					e.Room,
					e.At.Format("2006-01-02 15:04:05.000"),
					e.ID.String()[:8],
					e.Payload,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning entries: ", err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}
