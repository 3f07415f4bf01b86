// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command docchat is a retrieval-augmented chat assistant over a local
// document corpus. Documents are ingested into a BadgerDB-backed vector
// index, and chat answers are grounded in the most similar chunks.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docchat"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/reindex"
)

func main() {
	app := &cli.App{
		Name:  "docchat",
		Usage: "Chat with your documents using retrieval-augmented generation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "chat",
				Usage:     "Start an interactive chat session",
				ArgsUsage: " ",
				Action:    chatCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"c"},
						Usage:   "Resume an existing conversation by ID",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a document into the index",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:   "files",
				Usage:  "List ingested documents",
				Action: filesCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:      "delete-file",
				Usage:     "Remove a document and its chunks from the index",
				ArgsUsage: "<doc-id>",
				Action:    deleteFileCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:   "conversations",
				Usage:  "List conversations with their titles",
				Action: conversationsCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:      "history",
				Usage:     "Show the full message history of a conversation",
				ArgsUsage: "<conversation-id>",
				Action:    historyCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:      "delete-conversation",
				Usage:     "Delete a conversation and its messages",
				ArgsUsage: "<conversation-id>",
				Action:    deleteConversationCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:   "reindex",
				Usage:  "Regenerate embeddings for every stored chunk",
				Action: reindexCommand,
				Flags: append(serviceFlags(),
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: reindex.DefaultReportInterval,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serviceFlags returns the flags shared by every command that opens the
// database and talks to the AI services.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "chat-host",
			Usage: "Chat completion service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "chat-model",
			Usage:    "Chat completion model name",
			Required: true,
		},
	}
}

// openService builds a Service from the common command flags.
func openService(c *cli.Context, opts ...docchat.ServiceOption) (*docchat.Service, error) {
	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithChatHost(c.String("chat-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)

	opts = append([]docchat.ServiceOption{docchat.WithAIConfig(config)}, opts...)
	service, err := docchat.NewService(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return service, nil
}

func chatCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	conversationID := c.String("conversation")
	if conversationID == "" {
		conv, err := service.StartConversation(c.Context)
		if err != nil {
			return fmt.Errorf("failed to start conversation: %w", err)
		}
		conversationID = conv.ID
	}

	fmt.Fprintf(os.Stderr, "Conversation %s (empty line or Ctrl-D to exit)\n", conversationID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		result, err := service.Chat(c.Context, conversationID, question, func(chunk string) error {
			fmt.Print(chunk)
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
			continue
		}
		fmt.Println()
		if len(result.Matches) > 0 {
			sources := make([]string, 0, len(result.Matches))
			for _, match := range result.Matches {
				sources = append(sources, match.Chunk.Metadata.Source)
			}
			fmt.Fprintf(os.Stderr, "[sources: %s]\n", strings.Join(dedupe(sources), ", "))
		}
	}

	return scanner.Err()
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("ingest requires exactly one file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	file, err := service.Ingest(c.Context, filepath.Base(path), data)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}

	fmt.Printf("Ingested %s as %s\n", file.FileName, file.DocID)
	return nil
}

func filesCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	files, err := service.Files(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No documents ingested")
		return nil
	}
	for _, file := range files {
		fmt.Printf("%s  %s  %s\n", file.DocID, file.UploadedAt.Format("2006-01-02 15:04"), file.FileName)
	}
	return nil
}

func deleteFileCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("delete-file requires exactly one doc-id argument")
	}
	docID := c.Args().First()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := service.DeleteFile(c.Context, docID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", docID, err)
	}

	fmt.Printf("Deleted %s\n", docID)
	return nil
}

func conversationsCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	titles, err := service.Conversations(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(titles) == 0 {
		fmt.Fprintln(os.Stderr, "No conversations")
		return nil
	}
	for _, title := range titles {
		fmt.Printf("%s  %s\n", title.ConversationID, title.Title)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("history requires exactly one conversation-id argument")
	}
	conversationID := c.Args().First()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	messages, err := service.History(c.Context, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", conversationID, err)
	}

	for _, msg := range messages {
		fmt.Printf("%s: %s\n", msg.Role, msg.Text)
	}
	return nil
}

func deleteConversationCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("delete-conversation requires exactly one conversation-id argument")
	}
	conversationID := c.Args().First()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := service.DeleteConversation(c.Context, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}

	fmt.Printf("Deleted %s\n", conversationID)
	return nil
}

func reindexCommand(c *cli.Context) error {
	service, err := openService(c,
		docchat.WithReindexProgress(os.Stderr, c.Int("report-interval")))
	if err != nil {
		return err
	}
	defer service.Close()

	fmt.Fprintln(os.Stderr, "Reindexing all chunks...")

	processed, err := service.Reindex(c.Context)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("Reindexed %d chunks\n", processed)
	return nil
}

// dedupe removes duplicate entries while preserving order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// setupLogger configures the default slog logger based on the log-level flag.
func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.String("log-level"))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
