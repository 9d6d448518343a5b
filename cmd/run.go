package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/voicebot-cli/internal/crawler"
	"github.com/sells-group/voicebot-cli/internal/model"
)

var runOpts struct {
	url      string
	name     string
	voice    string
	role     string
	tone     string
	language string
	maxPages int
	dryRun   bool
	output   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl a website and provision a voice agent from it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode := "run"
		if runOpts.dryRun {
			mode = "dry-run"
		}

		env, err := initApp(ctx, mode, crawler.WithProgress(progressPrinter(os.Stderr)))
		if err != nil {
			return err
		}
		defer env.Close()

		req := buildRunRequest()

		if !req.DryRun && req.VoiceID != "" {
			voice, err := env.Voices.Resolve(ctx, req.VoiceID)
			if err != nil {
				return eris.Wrap(err, "resolve voice")
			}
			req.VoiceID = voice.ID
		}

		run, err := env.Pipeline.Run(ctx, req)
		if run != nil {
			if werr := writeOutput(os.Stdout, runOpts.output, run); werr != nil {
				return werr
			}
		}
		return err
	},
}

func buildRunRequest() model.AgentRequest {
	maxPages := runOpts.maxPages
	if maxPages == 0 {
		maxPages = cfg.Crawl.DefaultMaxPages
	}
	return model.AgentRequest{
		URL:      runOpts.url,
		Name:     runOpts.name,
		MaxPages: maxPages,
		Persona: model.Persona{
			Role:     runOpts.role,
			Tone:     runOpts.tone,
			Language: runOpts.language,
		},
		VoiceID: runOpts.voice,
		DryRun:  runOpts.dryRun,
	}
}

// progressPrinter reports crawl progress one line per page.
func progressPrinter(w io.Writer) crawler.ProgressFunc {
	return func(p crawler.Progress) {
		status := "ok"
		if !p.OK {
			status = "skip"
		}
		_, _ = fmt.Fprintf(w, "[%d/%d] %-4s %s\n", p.Visited, p.MaxPages, status, p.URL)
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.url, "url", "", "website to crawl (required)")
	f.StringVar(&runOpts.name, "name", "Website assistant", "agent name")
	f.StringVar(&runOpts.voice, "voice", "", "voice name or id")
	f.StringVar(&runOpts.role, "role", model.DefaultRoles[0], "agent role")
	f.StringVar(&runOpts.tone, "tone", model.DefaultTones[2], "agent tone")
	f.StringVar(&runOpts.language, "language", "en", "agent language (name or ISO code)")
	f.IntVar(&runOpts.maxPages, "max-pages", 0, "maximum pages to crawl (default from config)")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "generate the configuration without registering an agent")
	f.StringVarP(&runOpts.output, "output", "o", "json", "output format: json or yaml")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
