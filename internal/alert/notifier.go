// Package alert posts tenant lifecycle notifications to an ops Slack
// channel. Notifications are best-effort: failures are logged and dropped.
package alert

import (
	"fmt"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/municipia/municipia/internal/domain"
)

// SlackAPI is the subset of *slack.Client the notifier uses.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Notifier posts to a fixed channel. A nil *Notifier is a no-op, so callers
// never have to guard on whether alerting is configured.
type Notifier struct {
	api     SlackAPI
	channel string
}

func NewNotifier(api SlackAPI, channel string) *Notifier {
	if api == nil || channel == "" {
		return nil
	}
	return &Notifier{api: api, channel: channel}
}

// TenantCreated announces a newly provisioned tenant.
func (n *Notifier) TenantCreated(t *domain.Tenant) {
	n.post(fmt.Sprintf(":new: Tenant provisioned: *%s* (`%s`, plan %s)", t.Name, t.Slug, t.Plan))
}

// TenantStatusChanged announces an activation or suspension.
func (n *Notifier) TenantStatusChanged(t *domain.Tenant, from domain.TenantStatus) {
	emoji := ":large_green_circle:"
	if t.Status == domain.TenantSuspended {
		emoji = ":red_circle:"
	}
	n.post(fmt.Sprintf("%s Tenant *%s* (`%s`) moved %s -> %s", emoji, t.Name, t.Slug, from, t.Status))
}

func (n *Notifier) post(text string) {
	if n == nil {
		return
	}

	if _, _, err := n.api.PostMessage(n.channel, slacklib.MsgOptionText(text, false)); err != nil {
		log.Warn().Err(err).Msg("alert: slack post failed")
	}
}
