package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ConfigFunc is called on each push to get the latest alert settings, so
// config changes take effect without a restart.
type ConfigFunc func() (webhookURL, channel string)

// Service sends throttled operational alerts (rate-limit abuse, repeated
// webhook signature failures) to an ops chat webhook.
type Service struct {
	configFn   ConfigFunc
	httpClient *http.Client

	mu         sync.Mutex
	lastPushAt map[string]time.Time
	throttleD  time.Duration
}

// New creates a new alert service. configFn is called on each push.
func New(configFn ConfigFunc) *Service {
	return &Service{
		configFn:   configFn,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lastPushAt: make(map[string]time.Time),
		throttleD:  10 * time.Minute,
	}
}

type pushPayload struct {
	Channel string `json:"channel,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Push sends an alert immediately (no throttle).
func (s *Service) Push(title, body string) error {
	webhookURL, channel := s.configFn()
	if webhookURL == "" {
		return fmt.Errorf("alert webhook not configured")
	}

	b, err := json.Marshal(pushPayload{Channel: channel, Title: title, Body: body})
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Post(webhookURL, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ThrottlePush sends an alert for a repeated event, at most once per
// throttle window per ip+path pair.
func (s *Service) ThrottlePush(title, ip, path string) {
	webhookURL, _ := s.configFn()
	if webhookURL == "" {
		return
	}

	throttleKey := title + "|" + ip + "|" + path

	s.mu.Lock()
	last, ok := s.lastPushAt[throttleKey]
	if ok && time.Since(last) < s.throttleD {
		s.mu.Unlock()
		return
	}
	s.lastPushAt[throttleKey] = time.Now()
	s.mu.Unlock()

	_ = s.Push(title, fmt.Sprintf("IP: %s Path: %s", ip, path))
}
