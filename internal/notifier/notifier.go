// Package notifier forwards due-task notifications to the desktop tray
// companion over its loopback webhook. The tray advertises its port and
// shared secret through a lockfile; the PID in the lockfile is verified
// against the process table before anything is sent.
package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/kmorrow/daybell/internal/constants"
	"github.com/kmorrow/daybell/internal/logger"
	"github.com/kmorrow/daybell/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

type Notifier struct {
	durationMs uint32
}

// WebhookPayload is the tray webhook contract. Urgency travels as a
// structured field so the tray decides how to render it (sticky banner,
// accent color) instead of parsing markers out of the text.
type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
	Audio      bool   `json:"audio"`
	Priority   int    `json:"priority,omitempty"`
	Urgent     bool   `json:"urgent,omitempty"`
}

func New() *Notifier {
	return &Notifier{durationMs: constants.NotificationDurationMs}
}

// SetNotificationDuration applies the settings-level banner duration,
// given in seconds. Non-positive values keep the default.
func (n *Notifier) SetNotificationDuration(seconds int) {
	if seconds > 0 {
		n.durationMs = uint32(seconds) * 1000
	}
}

// OnDue satisfies the dispatcher sink contract: render the due task as
// a tray notification, retrying transient webhook failures.
func (n *Notifier) OnDue(occ models.Occurrence, tmpl models.TaskTemplate) error {
	payload := WebhookPayload{
		Text:       fmt.Sprintf("%s (%d min)", occ.Title, occ.DurationMin),
		DurationMs: n.durationMs,
		Audio:      tmpl.AudioAlert,
		Priority:   occ.Priority,
		Urgent:     occ.Priority <= 2,
	}

	var err error
	for attempt := 0; attempt < constants.NotifyMaxRetries; attempt++ {
		if err = n.deliver(payload); err == nil {
			return nil
		}
		logger.Debug("Notification attempt failed", "attempt", attempt+1, "error", err)
		time.Sleep(constants.NotifyRetryDelay)
	}
	return err
}

// Notify sends a plain text notification with audio disabled.
func (n *Notifier) Notify(text string) error {
	return n.deliver(WebhookPayload{Text: text, DurationMs: n.durationMs})
}

func (n *Notifier) deliver(payload WebhookPayload) error {
	trayAppConfigPath, err := GetTrayAppConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := findAndValidateTrayProcess(filepath.Join(trayAppConfigPath, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	return sendNotification(port, secret, payload)
}

// GetTrayAppConfigDir returns the configuration directory used by the tray application.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	// Check for settings.json to see if a custom lockfile dir is set
	settingsPath := filepath.Join(trayConfigDir, "settings.json")
	if _, err := os.Stat(settingsPath); err == nil {
		data, err := os.ReadFile(settingsPath)
		if err == nil {
			var store struct {
				Settings struct {
					LockfileDir *string `json:"lockfile_dir"`
				} `json:"settings"`
			}
			if err := json.Unmarshal(data, &store); err == nil {
				if store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
					return *store.Settings.LockfileDir, nil
				}
			}
		}
	}

	return trayConfigDir, nil
}

func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", errors.New("daybell-tray is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := parts[0]
	if strings.TrimSpace(port) == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	// Validate port is a valid number in the valid TCP range (1-65535)
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", errors.New("daybell-tray process not running")
	}

	if !strings.HasPrefix(process.Executable(), "daybell-tray") {
		return "", "", fmt.Errorf("process with PID %d is not daybell-tray (is %s)", pid, process.Executable())
	}

	return port, secret, nil
}

func sendNotification(port string, secret string, payload WebhookPayload) error {
	url := fmt.Sprintf("http://127.0.0.1:%s", port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Daybell-Secret", secret)

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
