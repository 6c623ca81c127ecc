package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jichang0619/aitrade/internal/domain"
)

// Embed colors.
const (
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorYellow = 0xf1c40f
	ColorGray   = 0x95a5a6
)

// DiscordNotifier sends trade and error notifications to a Discord webhook.
// A notifier built with an empty URL is disabled and every send is a no-op.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	httpClient *http.Client
}

func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyTrade reports the outcome of one execution cycle.
func (d *DiscordNotifier) NotifyTrade(instr domain.TradingInstruction, result domain.ExecutionResult) error {
	color := ColorGray
	switch result.Status {
	case domain.ExecSuccess, domain.ExecPartialThenMarket, domain.ExecTimeoutThenMarket:
		color = ColorGreen
	case domain.ExecFailed:
		color = ColorRed
	}
	if result.Warning != "" {
		color = ColorYellow
	}

	msg := fmt.Sprintf("**Action:** %s\n**Status:** %s\n**Filled:** %s @ %s\n**Reason:** %s",
		instr.Action, result.Status, result.FilledQty, result.AvgPrice, instr.Reason)
	if result.Warning != "" {
		msg += "\n**Warning:** " + result.Warning
	}

	return d.sendEmbed("Trade Executed", msg, color)
}

// NotifyError reports a cycle-level failure.
func (d *DiscordNotifier) NotifyError(stage string, err error) error {
	return d.sendEmbed("Cycle Error", fmt.Sprintf("**Stage:** %s\n**Error:** %v", stage, err), ColorRed)
}

func (d *DiscordNotifier) sendEmbed(title, message string, color int) error {
	if !d.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"footer": map[string]string{
					"text": "aitrade",
				},
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Post(d.webhookURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status: %d", resp.StatusCode)
	}

	return nil
}
