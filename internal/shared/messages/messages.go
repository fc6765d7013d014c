package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Messages struct {
	TransactionsUpdated MessageText `json:"transactions_updated"`
	RelinkRequired      MessageText `json:"relink_required"`
}

// Defaults are used for any message the file leaves empty, or when no
// file is configured.
var Defaults = Messages{
	TransactionsUpdated: MessageText{
		Title: "New transactions",
		Body:  "Your transactions have been updated.",
	},
	RelinkRequired: MessageText{
		Title: "Reconnect your bank",
		Body:  "Your bank connection needs attention. Open the app to reconnect.",
	},
}

var (
	loaded   = Defaults
	loadOnce sync.Once
	loadErr  error
)

// Load reads the notifications JSON file and caches the result.
// An empty path keeps the defaults. Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	loadOnce.Do(func() {
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read messages file: %w", err)
			return
		}
		var m Messages
		if err := json.Unmarshal(data, &m); err != nil {
			loadErr = fmt.Errorf("failed to parse messages file: %w", err)
			return
		}
		loaded = merge(m, Defaults)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}

// Get returns the loaded messages, or the defaults before Load succeeds.
func Get() *Messages {
	return &loaded
}

func merge(m, def Messages) Messages {
	m.TransactionsUpdated = fill(m.TransactionsUpdated, def.TransactionsUpdated)
	m.RelinkRequired = fill(m.RelinkRequired, def.RelinkRequired)
	return m
}

func fill(t, def MessageText) MessageText {
	if t.Title == "" {
		t.Title = def.Title
	}
	if t.Body == "" {
		t.Body = def.Body
	}
	return t
}
