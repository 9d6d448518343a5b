package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/voicebot-cli/internal/crawler"
)

var crawlOpts struct {
	url      string
	maxPages int
	quiet    bool
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a website and print its aggregated text",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("crawl"); err != nil {
			return err
		}

		maxPages := crawlOpts.maxPages
		if maxPages == 0 {
			maxPages = cfg.Crawl.DefaultMaxPages
		}

		var opts []crawler.Option
		if !crawlOpts.quiet {
			opts = append(opts, crawler.WithProgress(progressPrinter(os.Stderr)))
		}

		res, err := newCrawler(opts...).Crawl(ctx, crawlOpts.url, maxPages)
		if res != nil {
			zap.L().Info("crawl finished",
				zap.Int("visited", len(res.Visited)),
				zap.Int("failed", res.Failed),
			)
			if res.Text != "" {
				_, _ = fmt.Fprintln(os.Stdout, res.Text)
			}
		}
		return err
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlOpts.url, "url", "", "website to crawl (required)")
	crawlCmd.Flags().IntVar(&crawlOpts.maxPages, "max-pages", 0, "maximum pages to crawl (default from config)")
	crawlCmd.Flags().BoolVarP(&crawlOpts.quiet, "quiet", "q", false, "suppress per-page progress")
	_ = crawlCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(crawlCmd)
}
