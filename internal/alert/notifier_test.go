package alert_test

import (
	"errors"
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"

	"github.com/municipia/municipia/internal/alert"
	"github.com/municipia/municipia/internal/domain"
)

type mockSlackAPI struct {
	channel string
	calls   int
	err     error
}

func (m *mockSlackAPI) PostMessage(channelID string, _ ...slacklib.MsgOption) (string, string, error) {
	m.channel = channelID
	m.calls++
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "1234.5678", nil
}

func TestNotifier(t *testing.T) {
	t.Parallel()

	tenant := &domain.Tenant{
		Name:   "Renca",
		Slug:   "renca",
		Plan:   domain.PlanBase,
		Status: domain.TenantActive,
	}

	t.Run("posts to the configured channel", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		n := alert.NewNotifier(api, "C-OPS")

		n.TenantCreated(tenant)
		n.TenantStatusChanged(tenant, domain.TenantProvisioning)

		assert.Equal(t, "C-OPS", api.channel)
		assert.Equal(t, 2, api.calls)
	})

	t.Run("post failure does not panic", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{err: errors.New("rate limited")}
		n := alert.NewNotifier(api, "C-OPS")

		n.TenantCreated(tenant)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("unconfigured notifier is nil and safe", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, alert.NewNotifier(nil, "C-OPS"))
		assert.Nil(t, alert.NewNotifier(&mockSlackAPI{}, ""))

		var n *alert.Notifier
		n.TenantCreated(tenant)
		n.TenantStatusChanged(tenant, domain.TenantActive)
	})
}
