// Package tabclient is a command-line tab on the gesture channel.
package tabclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/handnav/internal/adapters/broadcast"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/model"
	"github.com/okian/handnav/pkg/logger"
)

// Run joins the channel, sends the configured gestures, listens for the
// configured window and returns the summary. Received gestures are printed
// to out.
func Run(ctx context.Context, config *Config, out io.Writer) (*Stats, error) {
	stats := &Stats{StartTime: time.Now(), ByGesture: make(map[string]int)}
	log := logger.Named("tab")

	var send gesture.ID
	if config.Send != "" {
		id, ok := gesture.Parse(config.Send)
		if !ok || id.IsNone() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidGesture, config.Send)
		}
		send = id
	}

	log.Info(ctx, "starting tab client",
		logger.String("baseURL", config.BaseURL),
		logger.String("send", string(send)),
		logger.Int("count", config.Count))

	if err := checkServiceHealth(ctx, config); err != nil {
		return nil, err
	}

	target, err := socketURL(config.BaseURL)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: config.Timeout}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("join channel: %w", err)
	}
	log.Info(ctx, "joined channel", logger.String("url", target))

	var (
		mu   sync.Mutex
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m model.Message
			if err := json.Unmarshal(data, &m); err != nil || !m.IsGestureAction() {
				continue
			}
			mu.Lock()
			stats.Received++
			stats.ByGesture[m.Gesture]++
			mu.Unlock()
			if config.Verbose {
				log.Debug(ctx, "received", logger.String("gesture", m.Gesture), logger.String("origin", m.Origin))
			}
			_, _ = fmt.Fprintf(out, "%s  %-16s from %s\n", m.Time().Format("15:04:05.000"), gesture.ID(m.Gesture).DisplayName(), short(m.Origin))
		}
	}()

	sendGestures(ctx, conn, config, send, stats, &mu, log)

	select {
	case <-ctx.Done():
	case <-done:
	case <-time.After(config.Listen):
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	<-done

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func sendGestures(ctx context.Context, conn *websocket.Conn, config *Config, id gesture.ID, stats *Stats, mu *sync.Mutex, log logger.Logger) {
	if id == "" {
		return
	}
	for i := range config.Count {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(config.Interval):
			}
		}
		data, _ := json.Marshal(map[string]any{"confidence": 100, "source": "tab"})
		m := broadcast.NewGestureMessage(id, data, time.Now())
		payload, err := json.Marshal(m)
		if err == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(config.Timeout))
			err = conn.WriteMessage(websocket.TextMessage, payload)
		}
		mu.Lock()
		if err != nil {
			stats.Failed++
		} else {
			stats.Sent++
		}
		mu.Unlock()
		if err != nil {
			log.Warn(ctx, "send failed", logger.Error(err))
		}
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(config.BaseURL, "/")+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// socketURL maps http(s)://host/prefix to ws(s)://host/prefix/ws.
func socketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

func short(id string) string {
	if id == "" {
		return "unknown"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// displayFinalStats logs the session summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("received", stats.Received),
		logger.Int("sent", stats.Sent),
		logger.Int("failed", stats.Failed),
		logger.Any("byGesture", stats.ByGesture),
		logger.Duration("duration", stats.Duration))
}
