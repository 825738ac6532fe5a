// Chat-ZILLA CLI - command line client for the chat server
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mikiasGebeyehu/Chat-ZILLA/clients/go/chatzilla"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATZILLA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := chatzilla.NewClient(baseURL)
	client.UserID = os.Getenv("CHATZILLA_USER")
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "register":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatzilla register <name>")
			os.Exit(1)
		}
		user, err := client.Register(os.Args[2], "")
		exitOnError(err)
		fmt.Printf("Registered as: %s\n", user.ID)

	case "users":
		users, err := client.ListUsers()
		exitOnError(err)
		for _, u := range users {
			fmt.Printf("  %s  %s\n", u.ID, u.Name)
		}

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chatzilla send <user_id> <text>")
			os.Exit(1)
		}
		msg, err := client.SendMessage(os.Args[2], chatzilla.SendMessageRequest{Text: os.Args[3]})
		exitOnError(err)
		fmt.Printf("Sent: %s\n", msg.ID)

	case "history":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatzilla history <user_id>")
			os.Exit(1)
		}
		msgs, err := client.Conversation(os.Args[2])
		exitOnError(err)
		for _, msg := range msgs {
			ts := msg.CreatedAt.Format("2006-01-02 15:04:05")
			from := msg.SenderID
			if len(from) > 8 {
				from = from[:8]
			}
			marker := " "
			if msg.ReadAt != nil {
				marker = "✓"
			}
			fmt.Printf("[%s] %s %s: %s\n", ts, marker, from, msg.Text)
		}

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatzilla read <message_id>")
			os.Exit(1)
		}
		resp, err := client.MarkRead(os.Args[2])
		exitOnError(err)
		fmt.Printf("Read at: %s\n", resp.ReadAt.Format(time.RFC3339))

	case "listen":
		sock, err := client.Connect()
		exitOnError(err)
		defer sock.Close()
		fmt.Println("Listening... (Ctrl-C to stop)")
		for ev := range sock.Events {
			fmt.Printf("[%s] %s\n", ev.Name, string(ev.Data))
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Chat-ZILLA CLI

Usage: chatzilla <command> [options]

Commands:
  register <name>         Create a user and print its ID
  users                   List other users
  send <user_id> <text>   Send a direct message
  history <user_id>       Show conversation with a user
  read <message_id>       Mark a received message read
  listen                  Stream realtime events
  health                  Check server health

Environment:
  CHATZILLA_URL    Server URL (default: http://localhost:8080)
  CHATZILLA_USER   Your user ID (for authenticated commands)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
