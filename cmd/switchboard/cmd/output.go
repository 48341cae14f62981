package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jmcleod/switchboard/logs"
	"github.com/jmcleod/switchboard/routing"
	"github.com/jmcleod/switchboard/vault"
)

var jsonOutput bool

func writeJSONOutput(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printCredentials(w io.Writer, creds []vault.Credential) error {
	if jsonOutput {
		return writeJSONOutput(w, creds)
	}
	if len(creds) == 0 {
		fmt.Fprintln(w, "No API keys configured.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tKEY\tSTATUS\tUSED TODAY")
	for _, c := range creds {
		status := "disabled"
		if c.IsActive {
			status = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t$%.2f\n",
			c.ID, c.Name, c.Provider.Info().Label, c.KeyPrefix, status, c.UsedAmount)
	}
	return tw.Flush()
}

func printEntries(w io.Writer, entries []logs.Entry) error {
	if jsonOutput {
		return writeJSONOutput(w, entries)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tMODEL\tKEY\tTOKENS\tLATENCY\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.Timestamp, e.Model, e.KeyName, e.PromptTokens, e.CompletionTokens, e.Latency, e.Status)
	}
	return tw.Flush()
}

func printRoutes(w io.Writer, routes []routing.Route) error {
	if jsonOutput {
		return writeJSONOutput(w, routes)
	}
	for i, r := range routes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		selected := "no provider available"
		if r.Selected != nil {
			selected = r.Selected.Info().Label
		}
		fmt.Fprintf(w, "%s -> %s\n", r.Model, selected)
		tw := newTable(w)
		for _, c := range r.Candidates {
			mark := " "
			if r.Selected != nil && c.Provider == *r.Selected {
				mark = "*"
			}
			avail := "no key"
			if c.Available {
				avail = "ready"
			}
			fmt.Fprintf(tw, "  %s %d.\t%s\t%s\n", mark, c.Priority, c.Label, avail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
