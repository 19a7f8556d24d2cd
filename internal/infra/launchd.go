package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// LaunchAgent plist template: runs one maintenance pass on a daily
// calendar trigger instead of keeping a resident daemon alive.
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>StartCalendarInterval</key>
    <dict>
        <key>Hour</key>
        <integer>{{.Hour}}</integer>
        <key>Minute</key>
        <integer>{{.Minute}}</integer>
    </dict>

    <key>RunAtLoad</key>
    <false/>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>
</dict>
</plist>`

// LaunchdLabel identifies the maintenance LaunchAgent.
const LaunchdLabel = "com.brewkeeper.maintenance"

// Default daily trigger time.
const (
	DefaultScheduleHour   = 3
	DefaultScheduleMinute = 0
)

type plistConfig struct {
	Label          string
	ExecutablePath string
	Hour           int
	Minute         int
	LogPath        string
	ErrorLogPath   string
}

// LaunchdManagerImpl implements domain.ScheduleManager with a user
// LaunchAgent. launchctl goes through CommandRunner so tests can stub it.
type LaunchdManagerImpl struct {
	plistDir  string
	plistPath string
	logDir    string
	hour      int
	minute    int
	runner    CommandRunner
}

// NewLaunchdManager creates a manager for the current user's LaunchAgents.
func NewLaunchdManager() domain.ScheduleManager {
	home, _ := os.UserHomeDir()
	plistDir := filepath.Join(home, "Library", "LaunchAgents")

	return &LaunchdManagerImpl{
		plistDir:  plistDir,
		plistPath: filepath.Join(plistDir, LaunchdLabel+".plist"),
		logDir:    ResolveLogDir(&RealFileChecker{}),
		hour:      DefaultScheduleHour,
		minute:    DefaultScheduleMinute,
		runner:    &RealCommandRunner{},
	}
}

// NewLaunchdManagerWithDeps creates a manager with injectable dependencies
// (for testing).
func NewLaunchdManagerWithDeps(plistDir, logDir string, hour, minute int, runner CommandRunner) *LaunchdManagerImpl {
	return &LaunchdManagerImpl{
		plistDir:  plistDir,
		plistPath: filepath.Join(plistDir, LaunchdLabel+".plist"),
		logDir:    logDir,
		hour:      hour,
		minute:    minute,
		runner:    runner,
	}
}

// generatePlistContent creates plist content for the given exec path.
func (m *LaunchdManagerImpl) generatePlistContent(execPath string) ([]byte, error) {
	tmpl, err := template.New("plist").Parse(launchAgentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	config := plistConfig{
		Label:          LaunchdLabel,
		ExecutablePath: execPath,
		Hour:           m.hour,
		Minute:         m.minute,
		LogPath:        filepath.Join(m.logDir, "brewkeeper.launchd.log"),
		ErrorLogPath:   filepath.Join(m.logDir, "brewkeeper.launchd.error.log"),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return nil, fmt.Errorf("failed to render plist: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes and loads the agent plist pointing at execPath.
func (m *LaunchdManagerImpl) Install(execPath string) error {
	content, err := m.generatePlistContent(execPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.plistDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", m.plistDir, err)
	}
	if err := os.WriteFile(m.plistPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}

	if err := m.runner.Run("launchctl", "load", m.plistPath); err != nil {
		return fmt.Errorf("failed to load LaunchAgent: %w", err)
	}
	return nil
}

// Uninstall unloads and removes the agent plist.
func (m *LaunchdManagerImpl) Uninstall() error {
	// Unload may fail if the agent was never loaded; the plist still goes.
	_ = m.runner.Run("launchctl", "unload", m.plistPath)

	if err := os.Remove(m.plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist: %w", err)
	}
	return nil
}

// IsInstalled checks if the agent plist is present.
func (m *LaunchdManagerImpl) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// PlistPath returns the plist file path.
func (m *LaunchdManagerImpl) PlistPath() string {
	return m.plistPath
}

// Ensure LaunchdManagerImpl implements domain.ScheduleManager.
var _ domain.ScheduleManager = (*LaunchdManagerImpl)(nil)
