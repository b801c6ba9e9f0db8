package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"certporter/internal/config"
	"certporter/internal/core"
	"certporter/internal/store"
	"certporter/internal/version"
)

// environmentInfo is the JSON report printed by the info command.
type environmentInfo struct {
	Version      string            `json:"version"`
	OS           string            `json:"os"`
	Arch         string            `json:"arch"`
	Hostname     string            `json:"hostname"`
	Elevated     bool              `json:"elevated"`
	Stores       map[string]string `json:"stores"`
	ConfigPath   string            `json:"config_path"`
	TimestampUTC string            `json:"time_utc"`
}

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report environment, privileges, and store availability",
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	configPath, err := config.Path()
	if err != nil {
		configPath = ""
	}

	// Probe each scope by opening and closing its store.
	stores := make(map[string]string, 2)
	for _, scope := range []store.Scope{store.UserScoped, store.MachineScoped} {
		s, err := store.DefaultProvider().Open(scope)
		if err != nil {
			stores[scope.String()] = fmt.Sprintf("unavailable: %v", err)
			continue
		}
		s.Close()
		stores[scope.String()] = "available"
	}

	info := environmentInfo{
		Version:      version.Version,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		Hostname:     hostname,
		Elevated:     core.OSPrivileges{}.Elevated(),
		Stores:       stores,
		ConfigPath:   configPath,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}

	jsonBytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal info JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}
