package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclinic/kioskboard/internal/config"
	"github.com/openclinic/kioskboard/internal/sessionfile"
)

// Session state constants for status reporting.
const (
	sessionStateMissing = "missing"
	sessionStateExpired = "expired"
	sessionStateValid   = "valid"
)

// statusReport is the machine-readable status output.
type statusReport struct {
	SessionState string `json:"session_state"`
	Owner        string `json:"owner,omitempty"`
	Origin       string `json:"origin,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
	SessionPath  string `json:"session_path"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session state",
		Long: `Display whether a session is stored locally, who it belongs to, which
server issued it, and when the access token expires. Reads only the local
session file — no network calls.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(_ *cobra.Command, _ []string) error {
	path := config.SessionPath(dataDir())
	store := sessionfile.NewStore(path)

	report := statusReport{
		SessionState: sessionStateMissing,
		SessionPath:  path,
	}

	s, err := store.Load()
	if err != nil {
		return err
	}

	if s != nil {
		report.Owner = s.Owner
		report.Origin = s.Origin
		report.Expiry = s.Token.Expiry.Format(time.RFC3339)

		if s.Valid() {
			report.SessionState = sessionStateValid
		} else {
			report.SessionState = sessionStateExpired
		}
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	}

	rows := [][]string{
		{"Session", report.SessionState},
	}

	if s != nil {
		rows = append(rows,
			[]string{"Owner", report.Owner},
			[]string{"Origin", report.Origin},
			[]string{"Expires", s.Token.Expiry.Local().Format("Jan _2 15:04")},
		)
	}

	rows = append(rows, []string{"File", path})

	for _, row := range rows {
		fmt.Printf("%-8s %s\n", row[0]+":", row[1])
	}

	return nil
}
