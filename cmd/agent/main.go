package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaeenbot/constitution-agent/internal/agent"
	"github.com/aaeenbot/constitution-agent/internal/checkpoint"
	"github.com/aaeenbot/constitution-agent/internal/config"
	"github.com/aaeenbot/constitution-agent/internal/ingestion"
	"github.com/aaeenbot/constitution-agent/internal/llm"
	"github.com/aaeenbot/constitution-agent/internal/processing"
	"github.com/aaeenbot/constitution-agent/internal/server"
	"github.com/aaeenbot/constitution-agent/internal/storage"
)

func main() {

	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
	indexPath := indexCmd.String("path", "./data", "path to folder to index")
	driveFolder := indexCmd.String("drive-folder", "", "Google Drive folder ID to index instead of a local path")
	driveToken := indexCmd.String("drive-token", "", "OAuth2 access token for Google Drive")

	chatCmd := flag.NewFlagSet("chat", flag.ExitOnError)
	chatMessage := chatCmd.String("m", "", "message text")
	chatConversation := chatCmd.String("c", "", "conversation ID (defaults to a new one)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println("Usage: agent <index|chat|serve> [flags]")
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "index":
		indexCmd.Parse(os.Args[2:])
		runIndex(cfg, *indexPath, *driveFolder, *driveToken)

	case "chat":
		chatCmd.Parse(os.Args[2:])
		if *chatMessage == "" {
			fmt.Println("Please provide -m \"your message\"")
			os.Exit(1)
		}
		runChat(cfg, *chatConversation, *chatMessage)

	case "serve":
		serveCmd.Parse(os.Args[2:])
		runServe(cfg)

	default:
		fmt.Println("expected 'index', 'chat' or 'serve' subcommands")
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*storage.PassageStore, *pgxpool.Pool) {
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB init:", err)
	}

	embedder := processing.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.LLMTimeout)
	store := storage.NewPassageStore(pool, embedder)
	if err := store.Init(ctx); err != nil {
		log.Fatal("DB schema:", err)
	}
	return store, pool
}

func newCheckpoints(cfg *config.Config) agent.CheckpointStore {
	checkpoints, err := checkpoint.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CheckpointTTL)
	if err != nil {
		log.Printf("Warning: %v", err)
		log.Println("Falling back to in-memory checkpoints; suspended conversations will not survive a restart")
		return checkpoint.NewMemoryStore()
	}
	return checkpoints
}

func runIndex(cfg *config.Config, path, driveFolder, driveToken string) {
	ctx := context.Background()
	store, pool := openStore(ctx, cfg)
	defer pool.Close()

	empty, err := store.IsEmpty(ctx)
	if err != nil {
		log.Fatal("store check:", err)
	}
	if !empty {
		log.Println("Knowledge store already populated, skipping ingestion")
		return
	}

	var files []string
	if driveFolder != "" {
		log.Println("Starting Drive indexing:", driveFolder)
		files, err = ingestion.LoadDriveFiles(ctx, driveFolder, driveToken)
	} else {
		log.Println("Starting indexing:", path)
		files, err = ingestion.LoadLocalFiles(path)
	}
	if err != nil {
		log.Fatal("load files:", err)
	}

	embedder := processing.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.LLMTimeout)
	for _, f := range files {
		log.Println("Indexing:", f)
		text, err := ingestion.ExtractText(f)
		if err != nil {
			log.Println("skip file:", f, "err:", err)
			continue
		}

		chunks := processing.ChunkText(processing.CleanText(text), cfg.ChunkSize, cfg.ChunkOverlap)
		embs, err := embedder.EmbedChunks(ctx, chunks)
		if err != nil {
			log.Println("embed error:", err)
			continue
		}
		for i := range chunks {
			if err := store.Insert(ctx, chunks[i], agent.SourceOriginal, embs[i]); err != nil {
				log.Println("db insert error:", err)
			}
		}
	}
	fmt.Println("Indexing complete.")
}

func runChat(cfg *config.Config, conversationID, message string) {
	ctx := context.Background()
	store, pool := openStore(ctx, cfg)
	defer pool.Close()

	completer := llm.New(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTimeout)
	engine := agent.NewEngine(completer, store, newCheckpoints(cfg), cfg.RetrievalK)

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	outcome, err := engine.Start(ctx, conversationID, agent.Message{Role: agent.RoleUser, Text: message})
	if err != nil {
		log.Fatal(err)
	}

	if outcome.Suspended != nil {
		fmt.Println(outcome.State.LastReply())
		fmt.Printf("\n%s (approve/yes/no): ", outcome.Suspended.Question)

		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		outcome, err = engine.Resume(ctx, conversationID, strings.TrimSpace(line))
		if err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("\n===== REPLY =====")
	fmt.Println(outcome.State.LastReply())
}

func runServe(cfg *config.Config) {
	ctx := context.Background()
	store, pool := openStore(ctx, cfg)
	defer pool.Close()

	checkpoints, err := checkpoint.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CheckpointTTL)
	if err != nil {
		log.Fatal("Redis init:", err)
	}
	defer checkpoints.Close()

	completer := llm.New(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTimeout)
	engine := agent.NewEngine(completer, store, checkpoints, cfg.RetrievalK)

	srv := server.New(engine, store, pool.Ping)
	if err := srv.Run(cfg.Port); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
