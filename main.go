package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nguyenvanduocit/tradubot/cmd"
)

// set at release time with -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
var (
	version = "v0.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Root.Version = buildVersion(version, commit, date)
	if err := cmd.Root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func buildVersion(version, commit, date string) string {
	return fmt.Sprintf("%s-c%s-b%s", version, commit, date)
}
