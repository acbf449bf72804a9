package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"linecoach/internal/chat"
	"linecoach/internal/config"
	"linecoach/internal/intent"
	"linecoach/internal/openai"
	"linecoach/internal/practice"
	"linecoach/internal/repl"
	"linecoach/internal/roster"
	"linecoach/internal/similarity"
	"linecoach/internal/store"
	"linecoach/internal/tui"
	"linecoach/internal/vecindex"
	"linecoach/internal/web"
)

type runtimeOptions struct {
	scenesPath string
	rosterPath string
	webMode    bool
	addr       string
}

func main() {
	opts, err := parseRuntimeOptions(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "argument error:", err)
		os.Exit(1)
	}

	settings, err := config.FromEnv()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if opts.scenesPath != "" {
		settings.ScenesPath = opts.scenesPath
	}
	if opts.rosterPath != "" {
		settings.RosterPath = opts.rosterPath
	}

	client, err := openai.NewClient(openai.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		EmbedModel: settings.EmbedModel,
		Timeout:    settings.RequestTimeout,
		MaxRetries: settings.APIMaxRetries,
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "openai client error:", err)
		os.Exit(1)
	}

	scenes, err := store.Open(settings.ScenesPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "scene catalog error:", err)
		os.Exit(1)
	}

	ros := roster.Default()
	if settings.RosterPath != "" {
		ros, err = roster.LoadFromFile(settings.RosterPath)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "roster error:", err)
			os.Exit(1)
		}
	}

	chatCfg := chat.Config{
		Client:     client,
		Classifier: intent.NewClassifier(client),
		Roster:     ros,
		Scenes:     scenes,
		Embedder:   client,
	}
	if settings.IndexURL != "" {
		index, err := vecindex.NewClient(vecindex.Config{
			URL:     settings.IndexURL,
			APIKey:  settings.IndexAPIKey,
			Timeout: settings.IndexTimeout,
		})
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "scene index error:", err)
			os.Exit(1)
		}
		chatCfg.Index = index
	}

	assistant, err := chat.New(chatCfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "assistant error:", err)
		os.Exit(1)
	}

	scorer := similarity.New(client, similarity.Config{
		SemanticCutoff: settings.SemanticCutoff,
	})
	sessions, err := practice.New(scenes, scorer, practice.Config{
		CorrectThreshold: settings.CorrectThreshold,
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "practice engine error:", err)
		os.Exit(1)
	}

	if opts.webMode {
		app := web.NewApp(web.Config{
			Assistant: assistant,
			Sessions:  sessions,
			Catalog:   scenes,
			OutputDir: settings.OutputDir,
			Now:       time.Now,
		})
		if err := app.Start(context.Background(), opts.addr); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "runtime error:", err)
			os.Exit(1)
		}
		return
	}

	if isTTY() {
		app := tui.NewApp(tui.Config{
			Assistant: assistant,
			Sessions:  sessions,
			Roster:    ros,
			OutputDir: settings.OutputDir,
			Now:       time.Now,
		})
		if err := app.Start(context.Background()); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "runtime error:", err)
			os.Exit(1)
		}
		return
	}

	// Fallback for non-interactive shells (pipes, CI).
	app := repl.NewApp(repl.Config{
		Assistant: assistant,
		Sessions:  sessions,
		OutputDir: settings.OutputDir,
		Writer:    os.Stdout,
		Now:       time.Now,
	})

	if err := app.Start(context.Background(), os.Stdin); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "runtime error:", err)
		os.Exit(1)
	}
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func parseRuntimeOptions(args []string) (runtimeOptions, error) {
	fs := flag.NewFlagSet("linecoach", flag.ContinueOnError)
	scenesPath := fs.String("scenes", "", "path to scene catalog json file (overrides LINECOACH_SCENES_PATH)")
	rosterPath := fs.String("roster", "", "path to roster json file (overrides LINECOACH_ROSTER_PATH)")
	webMode := fs.Bool("web", false, "serve the HTTP API instead of the terminal UI")
	addr := fs.String("addr", "", "listen address for -web (default :8080)")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return runtimeOptions{}, err
	}
	if len(fs.Args()) > 0 {
		return runtimeOptions{}, fmt.Errorf("unexpected positional args: %s", strings.Join(fs.Args(), " "))
	}

	return runtimeOptions{
		scenesPath: strings.TrimSpace(*scenesPath),
		rosterPath: strings.TrimSpace(*rosterPath),
		webMode:    *webMode,
		addr:       strings.TrimSpace(*addr),
	}, nil
}
