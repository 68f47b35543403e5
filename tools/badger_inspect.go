// Read-only inspector for the chat database. Safe to run while the server
// holds the Badger lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type sessionRow struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requester_id"`
	AssignedStaffID string     `json:"assigned_staff_id"`
	Status          string     `json:"status"`
	Subject         string     `json:"subject"`
	CreatedAt       time.Time  `json:"created_at"`
	LastActivityAt  time.Time  `json:"last_activity_at"`
	EndedAt         *time.Time `json:"ended_at"`
	TicketID        string     `json:"ticket_id"`
}

type messageRow struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	SenderStaff bool      `json:"sender_staff"`
	CreatedAt   time.Time `json:"created_at"`
}

// Presence records are stored with Go field names, no tags.
type presenceRow struct {
	StaffID   string
	Online    bool
	Available bool
	LastSeen  time.Time
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("BADGER_FILEPATH", database.DefaultPath), "Path to badger DB")
	mode := flag.String("mode", "sessions", "What to list: sessions, messages or presence")
	session := flag.String("session", "", "Restrict messages to one session id")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	switch *mode {
	case "sessions":
		color.Cyan.Println("Chat sessions")
		err = listSessions(db)
	case "messages":
		color.Cyan.Println("Chat messages")
		err = listMessages(db, *session)
	case "presence":
		color.Cyan.Println("Staff presence")
		err = listPresence(db)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
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
	return table
}

func listSessions(db *badger.DB) error {
	table := newTable([]string{"ID", "Status", "Requester", "Staff", "Subject", "Created", "Last Activity", "Ticket"})
	err := scan(db, "session:", func(key string, value []byte) error {
		var row sessionRow
		if err := json.Unmarshal(value, &row); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
			return nil
		}
		table.Append([]string{
			row.ID,
			row.Status,
			row.RequesterID,
			row.AssignedStaffID,
			row.Subject,
			row.CreatedAt.Format(time.RFC3339),
			row.LastActivityAt.Format(time.RFC3339),
			row.TicketID,
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func listMessages(db *badger.DB, sessionID string) error {
	prefix := "msg:"
	if sessionID != "" {
		prefix = "msg:" + sessionID + ":"
	}
	table := newTable([]string{"Session", "Sender", "Staff", "At", "Content"})
	err := scan(db, prefix, func(key string, value []byte) error {
		var row messageRow
		if err := json.Unmarshal(value, &row); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
			return nil
		}
		table.Append([]string{
			row.SessionID,
			row.SenderID,
			fmt.Sprintf("%t", row.SenderStaff),
			row.CreatedAt.Format(time.RFC3339),
			row.Content,
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func listPresence(db *badger.DB) error {
	table := newTable([]string{"Staff", "Online", "Available", "Last Seen"})
	err := scan(db, "presence:", func(key string, value []byte) error {
		var row presenceRow
		if err := json.Unmarshal(value, &row); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
			return nil
		}
		table.Append([]string{
			row.StaffID,
			fmt.Sprintf("%t", row.Online),
			fmt.Sprintf("%t", row.Available),
			row.LastSeen.Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func scan(db *badger.DB, prefix string, fn func(key string, value []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(v []byte) error { return fn(key, v) }); err != nil {
				return err
			}
		}
		return nil
	})
}
