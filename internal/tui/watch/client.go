package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hooksink/hooksink/internal/webhook"
)

// --- Message types ---

type eventsMsg webhook.EventsResponse

type tickMsg time.Time

type errMsg error

// --- Commands ---

// fetchEvents queries the receiver's read endpoint.
func fetchEvents(apiURL, token string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 2 * time.Second}

		target := apiURL + "/events?limit=50"
		if token != "" {
			target += "&token=" + url.QueryEscape(token)
		}

		resp, err := client.Get(target)
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("events endpoint returned %s", resp.Status))
		}

		var out eventsMsg
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return errMsg(err)
		}
		return out
	}
}
