package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"taskmind/internal/chat"
	"taskmind/internal/config"
	"taskmind/internal/llm"
	"taskmind/internal/logging"
	"taskmind/internal/workspace"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose      bool
	workspaceDir string
	timeout      time.Duration

	// Chat flags
	message        string
	conversationID string
	attachPaths    []string

	// Compact flags
	compactConversation string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "taskmind",
	Short: "taskmind - conversational assistant over your tasks, notes, and projects",
	Long: `taskmind is a personal productivity assistant driven by natural language.

It answers questions by querying your workspace (tasks, notes, projects,
files) through LLM tool use, proposes create/update/delete actions for
your approval rather than applying them, and asks clarifying questions
when a request is ambiguous.

Run "taskmind chat" without -m to start an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// initCmd initializes taskmind in the current workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize taskmind in the current workspace",
	Long: `Sets up a new taskmind workspace.

This command:
  1. Creates the .taskmind/ directory structure
  2. Writes a default config.yaml (if none exists)
  3. Initializes the workspace database

Run this once per workspace before chatting.`,
	RunE: runInit,
}

// chatCmd sends one message or starts an interactive session
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	Long: `Sends a message through the full assistant pipeline: transcript
assembly, LLM tool use against the workspace, and outcome classification.

With -m, sends a single message and prints the outcome as JSON.
Without -m, starts an interactive session.

Examples:
  taskmind chat -m "what's overdue this week?"
  taskmind chat -m "summarize this" --attach notes.png
  taskmind chat --conversation 1b4e...`,
	RunE: runChat,
}

// compactCmd forces memory maintenance on a conversation
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run memory compaction for a conversation now",
	Long: `Summarizes older messages of a conversation and prunes them from
history. The same maintenance runs automatically in the background as a
conversation grows; this command triggers it on demand.`,
	RunE: runCompact,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout")

	chatCmd.Flags().StringVarP(&message, "message", "m", "", "Message to send (omit for interactive mode)")
	chatCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID (omit to start a new one)")
	chatCmd.Flags().StringSliceVar(&attachPaths, "attach", nil, "File(s) to attach to the message")

	compactCmd.Flags().StringVarP(&compactConversation, "conversation", "c", "", "Conversation ID (required)")
	compactCmd.MarkFlagRequired("conversation")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(compactCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() (string, error) {
	if workspaceDir != "" {
		return filepath.Abs(workspaceDir)
	}
	return os.Getwd()
}

// runInit performs cold-start workspace setup.
func runInit(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfgPath := config.DefaultPath(ws)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(cfgPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists at %s\n", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, err := workspace.NewStore(databasePath(ws, cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize workspace database: %w", err)
	}
	defer store.Close()

	fmt.Printf("Workspace initialized at %s\n", ws)
	return nil
}

// app bundles the wired components of one CLI invocation.
type app struct {
	cfg     *config.Config
	store   *workspace.Store
	service *chat.Service
	memory  *chat.MemoryManager
	files   *workspace.LocalFileSource
	ws      string
}

// buildApp wires config, logging, storage, the LLM client, and the chat
// pipeline for a command run.
func buildApp() (*app, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.DefaultPath(ws))
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{
		Debug:      cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.Format == "json",
	}
	if err := logging.Initialize(ws, logOpts); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}

	store, err := workspace.NewStore(databasePath(ws, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace database: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		store.Close()
		return nil, err
	}
	client, err := llm.NewClient(llm.FactoryConfig{
		Provider: llm.Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	files := workspace.NewLocalFileSource(ws)
	orchestrator := chat.NewOrchestrator(
		client,
		chat.NewQueryExecutor(store),
		chat.NewCatalog(),
		chat.WithMaxIterations(cfg.Chat.MaxToolIterations),
		chat.WithSampling(cfg.LLM.MaxTokens, cfg.LLM.Temperature),
	)
	memory := chat.NewMemoryManager(
		store,
		chat.NewSemanticSummarizer(client),
		chat.WithCompactionPolicy(cfg.Memory.CompactionThreshold, cfg.Memory.CompactionInterval, cfg.Memory.KeepRecent),
	)
	service := chat.NewService(store, chat.NewTranscriptBuilder(files), orchestrator, memory)

	return &app{cfg: cfg, store: store, service: service, memory: memory, files: files, ws: ws}, nil
}

func (a *app) close() {
	a.store.Close()
	logging.CloseAll()
}

func databasePath(ws string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.Workspace.DatabasePath) {
		return cfg.Workspace.DatabasePath
	}
	return filepath.Join(ws, cfg.Workspace.DatabasePath)
}

// localCreds identifies the single local CLI user.
func localCreds() workspace.Credentials {
	return workspace.Credentials{UserID: "local"}
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	creds := localCreds()
	convID := conversationID
	if convID == "" {
		conv, err := a.store.CreateConversation(creds, firstWords(message, 8))
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		convID = conv.ID
		fmt.Fprintf(os.Stderr, "conversation: %s\n", convID)
	}

	if message != "" {
		return a.sendOne(ctx, convID, message, attachPaths, creds)
	}
	return a.interactive(ctx, convID, creds)
}

// sendOne runs a single exchange and prints the outcome JSON.
func (a *app) sendOne(ctx context.Context, convID, text string, paths []string, creds workspace.Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attachments, err := a.stageAttachments(paths)
	if err != nil {
		return err
	}

	outcome, err := a.service.HandleMessage(ctx, convID, text, attachments, creds)
	if err != nil {
		return err
	}

	data, err := chat.MarshalOutcome(outcome)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// interactive reads messages from stdin until EOF or interrupt. Config
// changes to the logging section apply mid-session via the watcher.
func (a *app) interactive(ctx context.Context, convID string, creds workspace.Credentials) error {
	watcher, err := config.NewWatcher(config.DefaultPath(a.ws))
	if err != nil {
		logger.Warn("Config hot-reload unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	fmt.Println("taskmind interactive session (Ctrl-D to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := a.sendOne(ctx, convID, text, nil, creds); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// stageAttachments copies local files into staging storage and records
// them so the transcript builder can fetch their bytes.
func (a *app) stageAttachments(paths []string) ([]workspace.Attachment, error) {
	var attachments []workspace.Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", p, err)
		}

		name := filepath.Base(p)
		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := uuid.NewString() + filepath.Ext(name)
		if err := a.files.Put(key, true, data); err != nil {
			return nil, err
		}

		rec, err := a.store.CreateFile(localCreds(), workspace.FileRecord{
			FileName:    name,
			ContentType: contentType,
			Size:        int64(len(data)),
			Temporary:   true,
			StorageKey:  key,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record attachment: %w", err)
		}

		attachments = append(attachments, workspace.Attachment{
			FileID:      rec.ID,
			FileName:    name,
			ContentType: contentType,
			Temporary:   true,
			StorageKey:  key,
		})
	}
	return attachments, nil
}

func runCompact(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := a.store.GetConversation(localCreds(), compactConversation); err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	logger.Info("Running memory maintenance", zap.String("conversation", compactConversation))
	a.memory.Compact(ctx, compactConversation)
	fmt.Println("Compaction complete (see logs for detail).")
	return nil
}

// firstWords derives a conversation title from the opening message.
func firstWords(s string, n int) string {
	if s == "" {
		return "New conversation"
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
