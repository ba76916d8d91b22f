package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barangay-rbi/registry/internal/client"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const pickHelp = `type to search; /down /up /enter /esc /clear move through results, /quit exits`

type pickOptions struct {
	server string
	token  string
	level  string
	parent string
}

func newPickCmd() *cobra.Command {
	var opts pickOptions
	cmd := &cobra.Command{
		Use:   "pick <place|occupation|option-kind>",
		Short: "Drive a typeahead picker against a running server",
		Long:  "Drive a typeahead picker against a running server.\n\n" + pickHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cl := client.New(client.Options{BaseURL: opts.server, Token: opts.token, Retries: 1}, logger)
			cfgSel, err := pickerConfig(cmd.Context(), cl, args[0], opts, cfg.Search)
			if err != nil {
				return err
			}
			cfgSel.Logger = logger

			sel := typeahead.New(cfgSel)
			defer sel.Close()

			fmt.Fprintln(cmd.OutOrStdout(), pickHelp)
			return runPicker(cmd.Context(), sel, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "http://localhost:8080/api/v1", "registry API base URL")
	f.StringVar(&opts.token, "token", "", "bearer token (see rbi token)")
	f.StringVar(&opts.level, "level", "", "place level: region, province, city or barangay")
	f.StringVar(&opts.parent, "parent", "", "restrict places to children of this PSGC code")
	return cmd
}

func pickerConfig(ctx context.Context, cl *client.Client, kind string, opts pickOptions, search config.SearchConfig) (typeahead.Config, error) {
	remote := typeahead.Config{
		Delay:           search.DebounceDelay,
		MinSearchLength: search.MinQueryLength,
	}
	switch kind {
	case "place":
		remote.Search = cl.PlaceSearch(client.PlaceQuery{Level: opts.level, Parent: opts.parent})
		return remote, nil
	case "occupation":
		remote.Search = cl.OccupationSearch(search.DefaultLimit)
		remote.Delay = max(remote.Delay, typeahead.OccupationDelay)
		remote.AllowCustom = true
		remote.Create = cl.OccupationCreate()
		return remote, nil
	default:
		options, err := cl.Options(ctx, kind, "")
		if err != nil {
			return typeahead.Config{}, err
		}
		return typeahead.Config{Options: options, Searchable: true}, nil
	}
}

// runPicker reads one command per line until a selection is made, /quit,
// or end of input.
func runPicker(ctx context.Context, sel *typeahead.Select, in io.Reader, out io.Writer) error {
	keys := map[string]typeahead.Key{
		"/down":  typeahead.KeyArrowDown,
		"/up":    typeahead.KeyArrowUp,
		"/enter": typeahead.KeyEnter,
		"/esc":   typeahead.KeyEscape,
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		cmd := strings.TrimSpace(line)
		key, isKey := keys[cmd]
		switch {
		case cmd == "/quit":
			return nil
		case cmd == "/clear":
			sel.Clear()
		case isKey:
			if err := sel.Key(ctx, key); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			sel.Type(line)
			sel.Flush()
			sel.Wait()
		}

		snap := sel.Snapshot()
		if snap.Selected != nil && snap.State == typeahead.Closed {
			fmt.Fprintf(out, "selected: %s (%s)\n", snap.Selected.Label, snap.Selected.Value)
			return nil
		}
		render(out, snap)
	}
	return scanner.Err()
}

func render(out io.Writer, snap typeahead.Snapshot) {
	if snap.State == typeahead.Closed {
		fmt.Fprintf(out, "[%s]\n", snap.Query)
		return
	}
	if snap.Message != "" {
		fmt.Fprintf(out, "  %s\n", snap.Message)
	}
	for i, opt := range snap.Visible {
		marker := " "
		if i == snap.Highlight {
			marker = ">"
		}
		line := fmt.Sprintf("%s %s", marker, opt.Label)
		if opt.Badge != "" {
			line += " [" + opt.Badge + "]"
		}
		if opt.Description != "" {
			line += "  " + opt.Description
		}
		fmt.Fprintln(out, line)
	}
}
