package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"recruit_sandbox/chat"
	"recruit_sandbox/config"
	"recruit_sandbox/export"
	"recruit_sandbox/generator"
	"recruit_sandbox/sandbox"
	"recruit_sandbox/server"
)

var (
	configPath string
	provider   string
	verbose    bool
	logger     = logrus.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recruit-sandbox",
		Short:         "Turn raw hiring notes into a job description and interview guide",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(os.Stderr)
			logger.SetLevel(logrus.InfoLevel)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config.json or config.yaml")
	root.PersistentFlags().StringVar(&provider, "provider", "", "override llm.provider (gemini, openai, deepseek, mock)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(newGenerateCmd(), newBatchCmd(), newChatCmd(), newServeCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var notesPath, mdPath, htmlPath string
	var inline bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a recruitment artifact from a notes file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			notes, err := readNotes(cmd.InOrStdin(), notesPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(notes) == "" {
				return errors.New("notes are empty; nothing to generate")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
			defer cancel()
			llm, err := buildLLM(ctx, cfg)
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, llm)
			if err != nil {
				return err
			}

			logger.Infof("[cli] generating from %d bytes of notes", len(notes))
			art, err := agent.Generate(ctx, notes)
			if err != nil {
				return err
			}
			if mdPath == "" && htmlPath == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(art)
			}
			return writeExports(art, mdPath, htmlPath, inline)
		},
	}
	cmd.Flags().StringVar(&notesPath, "notes", "-", "path to raw hiring notes, - for stdin")
	cmd.Flags().StringVar(&mdPath, "md", "", "write the artifact as markdown to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write the artifact as html to this path")
	cmd.Flags().BoolVar(&inline, "inline", false, "flatten lists and headings in the html export")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var outDir string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch NOTES_FILE...",
		Short: "Generate artifacts for several notes files concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			llm, err := buildLLM(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, llm)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for _, path := range args {
				g.Go(func() error {
					notes, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					callCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
					defer cancel()
					art, err := agent.Generate(callCtx, string(notes))
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					if err := writeExports(art, filepath.Join(outDir, base+".md"), "", false); err != nil {
						return err
					}
					logger.WithField("file", path).Infof("[batch] %q done", art.JobDescription.Title)
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for generated markdown files")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum concurrent generation calls")
	return cmd
}

func newChatCmd() *cobra.Command {
	var notesPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Refine hiring notes in a conversation, then apply the revision",
		Long: `Starts an interactive chat about the current notes.

Commands inside the chat:
  /apply     apply the pending revised notes and regenerate
  /revision  show the pending revised notes
  /notes     show the current notes
  /artifact  show the current artifact as markdown
  /quit      exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			llm, err := buildLLM(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, llm)
			if err != nil {
				return err
			}
			session, err := chat.NewSession(llm, chatOptions(cfg)...)
			if err != nil {
				return err
			}
			sb, err := sandbox.New(agent, session, logger)
			if err != nil {
				return err
			}
			if notesPath != "" {
				notes, err := readNotes(cmd.InOrStdin(), notesPath)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
				art, err := sb.Generate(ctx, notes)
				cancel()
				if err != nil {
					return err
				}
				if art != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", art.JobDescription.Title)
				}
			}
			return runChatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sb, cfg.RequestTimeout())
		},
	}
	cmd.Flags().StringVar(&notesPath, "notes", "", "path to initial hiring notes")
	return cmd
}

func runChatLoop(ctx context.Context, in io.Reader, out io.Writer, sb *sandbox.Sandbox, timeout time.Duration) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit":
			return nil
		case "/notes":
			fmt.Fprintln(out, sb.Notes())
		case "/revision":
			if c, ok := sb.Chat().PendingRevision(); ok {
				fmt.Fprintln(out, c.Payload)
			} else {
				fmt.Fprintln(out, "No pending revision.")
			}
		case "/artifact":
			if art, ok := sb.Artifact(); ok {
				fmt.Fprint(out, export.Markdown(art))
			} else {
				fmt.Fprintln(out, "Nothing generated yet.")
			}
		case "/apply":
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			art, err := sb.ApplyRevision(callCtx)
			cancel()
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				break
			}
			fmt.Fprintf(out, "Regenerated: %s (%d questions)\n", art.JobDescription.Title, len(art.InterviewGuide))
		default:
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			shown := ""
			res, err := sb.SendChat(callCtx, line, func(text string) {
				visible := streamVisible(text)
				if len(visible) > len(shown) {
					fmt.Fprint(out, visible[len(shown):])
					shown = visible
				}
			})
			cancel()
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				break
			}
			finishReply(out, res.Reply, shown)
			if res.Revision != nil {
				fmt.Fprintln(out, "Revised notes are ready: /revision to read them, /apply to regenerate.")
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

// streamVisible hides the revision block while a reply is still streaming,
// holding back a tail that could be the start of the opening delimiter.
func streamVisible(text string) string {
	if i := strings.Index(text, chat.OpenDelimiter); i >= 0 {
		return text[:i]
	}
	hold := len(chat.OpenDelimiter) - 1
	if len(text) <= hold {
		return ""
	}
	return text[:len(text)-hold]
}

// finishReply prints whatever part of the final reply has not been shown yet.
func finishReply(out io.Writer, reply, shown string) {
	// the reply is trimmed; leading whitespace already printed must not count
	shown = strings.TrimLeft(shown, " \t\r\n")
	switch {
	case strings.HasPrefix(reply, shown):
		fmt.Fprintln(out, reply[len(shown):])
	case strings.HasPrefix(shown, reply):
		// only trailing whitespace differs
		if !strings.HasSuffix(shown, "\n") {
			fmt.Fprintln(out)
		}
	default:
		if shown != "" {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, reply)
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			llm, err := buildLLM(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, llm)
			if err != nil {
				return err
			}
			srv, err := server.New(agent, llm, server.Options{
				Timeout:     cfg.RequestTimeout(),
				ChatOptions: chatOptions(cfg),
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			listen := cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			logger.Infof("Starting web server on %s", listen)
			hs := &http.Server{
				Addr:              listen,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return hs.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config server_addr)")
	return cmd
}

// loadConfig falls back to defaults when the config file does not exist.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debugf("config %s not found, using defaults", configPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return config.Config{}, err
	}
	if provider != "" {
		cfg.LLM.Provider = strings.ToLower(provider)
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func buildLLM(ctx context.Context, cfg config.Config) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.ResolveAPIKey(),
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return generator.NewGeminiLLMFromConfig(ctx, settings)
	case config.ProviderOpenAI, config.ProviderDeepSeek:
		return generator.NewOpenAILLMFromConfig(settings)
	case config.ProviderMock:
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func buildAgent(cfg config.Config, llm generator.LLMClient) (*generator.Agent, error) {
	opts := []generator.AgentOption{generator.WithLogger(logger)}
	if cfg.LLM.GenerationThinkingBudget > 0 {
		opts = append(opts, generator.WithThinkingBudget(cfg.LLM.GenerationThinkingBudget))
	}
	return generator.NewAgent(llm, opts...)
}

func chatOptions(cfg config.Config) []chat.Option {
	opts := []chat.Option{chat.WithLogger(logger)}
	if cfg.LLM.ChatThinkingBudget > 0 {
		opts = append(opts, chat.WithThinkingBudget(cfg.LLM.ChatThinkingBudget))
	}
	return opts
}

func readNotes(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func writeExports(art generator.Artifact, mdPath, htmlPath string, inline bool) error {
	if mdPath != "" {
		if err := os.WriteFile(mdPath, []byte(export.Markdown(art)), 0644); err != nil {
			return err
		}
		logger.Infof("[cli] wrote %s", mdPath)
	}
	if htmlPath != "" {
		html, err := export.HTML(art, inline)
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
			return err
		}
		logger.Infof("[cli] wrote %s", htmlPath)
	}
	return nil
}
