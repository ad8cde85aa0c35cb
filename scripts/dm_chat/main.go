// Command dm_chat is an interactive smoke client for a running server.
// It connects with a token, prints presence and incoming messages, and
// sends whatever you type to the chosen peer.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vovakirdan/dmwire-server/pkg/client"
)

func main() {
	if err := run(); err != nil {
		log.Printf("dm_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "access token")
	peer := flag.Int64("peer", 0, "peer user id to chat with")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}
	if *peer == 0 {
		return fmt.Errorf("-peer is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{URL: *addr, Token: *token}, client.Handlers{
		OnMessage: func(m client.Message) {
			fmt.Printf("[%d] %s\n", m.SenderID, m.Content)
		},
		OnAck: func(m client.Message) {
			fmt.Printf("(sent #%d)\n", m.ID)
		},
		OnPresence: func(userID int64, username string, online bool, lastSeen time.Time) {
			if online {
				fmt.Printf("* %s is online\n", username)
				return
			}
			fmt.Printf("* %s went offline (last seen %s)\n", username, lastSeen.Format(time.Kitchen))
		},
		OnTyping: func(userID int64, typing bool) {
			if typing {
				fmt.Printf("* %d is typing...\n", userID)
			}
		},
		OnReadReceipt: func(messageID int64, _ time.Time) {
			fmt.Printf("(read #%d)\n", messageID)
		},
		OnState: func(s client.State) {
			if s == client.StateDegraded {
				fmt.Println("* connection lost, retrying in background")
			}
		},
	})
	defer c.Close()

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := c.JoinConversation(*peer); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	fmt.Printf("Connected to %s, chatting with user %d\n", *addr, *peer)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			c.StopTyping(*peer)
			if err := c.Send(*peer, text); err != nil {
				log.Printf("send: %v", err)
			}
		}
	}
}
