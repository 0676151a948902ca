// FilePath: internal/notification/notification.go
package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/models"
)

type Type string

const (
	TypeRiskAlert       Type = "risk_alert"
	TypeHiveDeactivated Type = "hive_deactivated"
)

// Payload is a push message. Silent payloads carry data only and are not
// shown to the user by the client. Event identifies the occurrence that
// triggered it for deduplication and is never sent.
type Payload struct {
	Type   Type
	Title  string
	Body   string
	Silent bool
	Data   map[string]string
	Event  string
}

func stampKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

// Notifier delivers a payload to one device token.
type Notifier interface {
	Name() string
	Send(ctx context.Context, token string, p Payload) error
}

// RiskAlert is the silent alert sent when a hive's count reaches a threshold.
func RiskAlert(hive *models.Hive) Payload {
	return Payload{
		Type:   TypeRiskAlert,
		Title:  "Hive activity",
		Body:   fmt.Sprintf("%d detections in hive %s", hive.DetectionCount, hive.DisplayName()),
		Silent: true,
		Data: map[string]string{
			"type":           string(TypeRiskAlert),
			"hiveId":         hive.ID,
			"riskLevel":      string(hive.RiskLevel),
			"detectionCount": strconv.Itoa(hive.DetectionCount),
			"priority":       "high",
		},
		Event: stampKey(hive.LastDetection),
	}
}

// HiveDeactivated is sent when the sweeper switches a hive off.
func HiveDeactivated(hive *models.Hive, threshold time.Duration) Payload {
	return Payload{
		Type:  TypeHiveDeactivated,
		Title: "A hive is not active",
		Body:  fmt.Sprintf("%s is not active for at least %d minutes.", hive.DisplayName(), int(threshold.Minutes())),
		Data: map[string]string{
			"type":   string(TypeHiveDeactivated),
			"hiveId": hive.ID,
		},
		Event: stampKey(hive.LastActivation),
	}
}

// LogNotifier only logs what it would have sent.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Send(ctx context.Context, token string, p Payload) error {
	nuts.L.Infof("[LogNotifier] %s to %s: %s (silent=%v, data=%v)", p.Type, maskToken(token), p.Body, p.Silent, p.Data)
	return nil
}

// ShoutrrrNotifier routes payloads to the configured shoutrrr URLs. The
// device token travels as a param so push gateways can address the device.
type ShoutrrrNotifier struct {
	sender *router.ServiceRouter
}

func NewShoutrrrNotifier(urls []string, timeout time.Duration) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create shoutrrr sender: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{sender: sender}, nil
}

func (s *ShoutrrrNotifier) Name() string { return "shoutrrr" }

// Send delivers p to every configured service. Delivery is bounded by the
// sender timeout; ctx is only checked before sending.
func (s *ShoutrrrNotifier) Send(ctx context.Context, token string, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if p.Title != "" {
		params.SetTitle(p.Title)
	}
	for k, v := range p.Data {
		params[k] = v
	}
	params["token"] = token
	params["silent"] = strconv.FormatBool(p.Silent)

	for _, err := range s.sender.Send(p.Body, &params) {
		if err != nil {
			return err
		}
	}
	return nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
