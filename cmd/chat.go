package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/chatrelay/pkg/chatclient"
)

// ChatCommand returns an interactive terminal chat over the relay server
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the assistant from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of the relay server",
				Value: "http://localhost:8888",
			},
			&cli.BoolFlag{
				Name:  "stream",
				Usage: "Stream the reply token by token",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Path of the local chat state file",
			},
		},
		Action: func(c *cli.Context) error {
			statePath := c.String("state")
			if statePath == "" {
				home, err := os.UserHomeDir()
				if err == nil {
					statePath = filepath.Join(home, ".chatrelay", "history.json")
				}
			}

			client := chatclient.New(chatclient.Options{
				BaseURL:   c.String("server"),
				StorePath: statePath,
				Optimistic: chatclient.OptimisticDelays{
					Sent:      300 * time.Millisecond,
					Delivered: 800 * time.Millisecond,
				},
			})

			fmt.Println("ChatRelay terminal client. Empty line or Ctrl-D to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					break
				}
				if err := runTurn(c.Context, client, text, c.Bool("stream")); err != nil {
					fmt.Fprintf(os.Stderr, "turn failed: %v (retry by sending again)\n", err)
				}
			}
			return scanner.Err()
		},
	}
}

func runTurn(ctx context.Context, client *chatclient.Client, text string, stream bool) error {
	if stream {
		_, err := client.Stream(ctx, text, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		return err
	}
	reply, err := client.Send(ctx, text)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
