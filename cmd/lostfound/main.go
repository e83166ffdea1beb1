package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lostfound/community/internal/client"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/pkg/config"
	"github.com/lostfound/community/pkg/logging"
)

// app is the state shared by every command
type app struct {
	cfg     *config.Config
	client  *client.Client
	session *feed.Session
	out     io.Writer
	now     func() time.Time
	asJSON  bool
}

var (
	verbose   bool
	outputFmt string
	apiURL    string
	token     string
)

func main() {
	a := &app{out: os.Stdout, now: time.Now}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lostfound",
		Short: "Browse and interact with the Lost & Found community",
		Long: `lostfound is a command-line client for the Lost & Found community
board. Browse lost and found items, like them, comment on them and
post your own.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&outputFmt, "output", "text", "Output format: text, json")
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint (default from LOSTFOUND_API_URL)")
	root.PersistentFlags().StringVar(&token, "token", "", "Access token (default from LOSTFOUND_TOKEN)")

	root.AddCommand(
		newFeedCmd(a),
		newItemCmd(a),
		newLikeCmd(a, true),
		newLikeCmd(a, false),
		newCommentCmd(a),
		newMineCmd(a),
		newPostCmd(a),
		newProfileCmd(a),
		newStatsCmd(a),
		newCategoriesCmd(a),
	)
	return root
}

// init loads configuration and builds the session for the signed-in viewer
func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}
	if token != "" {
		cfg.Client.Token = token
	}

	cfg.Logging.Format = "text"
	cfg.Logging.Level = "ERROR"
	if verbose {
		cfg.Logging.Level = "DEBUG"
	}
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.asJSON = outputFmt == "json"
	a.client = client.New(&cfg.Client)

	var viewer *feed.Viewer
	if cfg.Client.Token != "" {
		if viewer, err = a.client.CurrentViewer(ctx); err != nil {
			return fmt.Errorf("failed to resolve viewer: %w", err)
		}
	}

	a.session = feed.NewSession(a.client, viewer,
		feed.WithFanOut(cfg.Feed.FanOut),
		feed.WithLookupTimeout(cfg.Feed.LookupTimeout))
	return nil
}

// printJSON writes v as indented JSON
func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
