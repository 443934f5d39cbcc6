// Package main runs end-to-end scenarios against a running booking API.
//
// Scenarios cover:
//   - Health and readiness
//   - Availability, booking creation and slot conflicts
//   - WhatsApp "cancel" commands arriving through the webhook
//   - Duplicate webhook delivery
//   - Reminder sweep authorisation
//
// The target should run with WHATSAPP_DRY_RUN=true so no real messages leave.
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 CRON_SECRET=... go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	testPhone  = "+7 (701) 555-00-02"
	testChatID = "77015550002@c.us"
	// Far enough ahead to be bookable, and a weekday in the default schedule.
	daysAhead = 30
)

var (
	apiBase    string
	cronSecret string
	client     = &http.Client{Timeout: 15 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func do(method, path string, body interface{}, header map[string]string) (int, map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, nil
}

func nextWeekday() string {
	d := time.Now().AddDate(0, 0, daysAhead)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func slots(date string) []string {
	_, body, err := do(http.MethodGet, "/api/availability?date="+date, nil, nil)
	if err != nil {
		return nil
	}
	raw, _ := body["slots"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if str, ok := s.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

func createBooking(date, slot string) (int, map[string]interface{}) {
	status, body, err := do(http.MethodPost, "/api/bookings", map[string]string{
		"client_name": "E2E Client",
		"phone":       testPhone,
		"date":        date,
		"time":        slot,
		"notes":       "e2e",
	}, nil)
	if err != nil {
		return 0, nil
	}
	return status, body
}

func sendWhatsApp(id, text string) (int, error) {
	status, _, err := do(http.MethodPost, "/api/whatsapp/webhook", map[string]interface{}{
		"typeWebhook": "incomingMessageReceived",
		"idMessage":   id,
		"timestamp":   time.Now().Unix(),
		"senderData": map[string]string{
			"chatId":     testChatID,
			"sender":     testChatID,
			"senderName": "E2E Client",
		},
		"messageData": map[string]interface{}{
			"typeMessage":     "textMessage",
			"textMessageData": map[string]string{"textMessage": text},
		},
	}, nil)
	return status, err
}

func bookingStatus(id string) string {
	_, body, err := do(http.MethodGet, "/api/bookings/"+id, nil, nil)
	if err != nil {
		return ""
	}
	s, _ := body["status"].(string)
	return s
}

// waitForStatus polls because the webhook may hand messages to a queue.
func waitForStatus(id, target string, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if bookingStatus(id) == target {
			return true
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}

func cleanup(id string) {
	_, _, _ = do(http.MethodDelete, "/api/bookings/"+id, nil, nil)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHealth(t *T) {
	status, body, err := do(http.MethodGet, "/health", nil, nil)
	if err != nil {
		t.fatalf("health request: %v", err)
		return
	}
	t.check("GET /health returns 200", status == http.StatusOK)
	t.check("health status is ok", body["status"] == "ok")

	status, _, err = do(http.MethodGet, "/ready", nil, nil)
	t.check("GET /ready returns 200", err == nil && status == http.StatusOK)
}

func scenarioBookingLifecycle(t *T) {
	date := nextWeekday()
	before := slots(date)
	if len(before) == 0 {
		t.fatalf("no free slots on %s", date)
		return
	}

	status, created := createBooking(date, before[0])
	t.check("create returns 201", status == http.StatusCreated)
	id, _ := created["id"].(string)
	if id == "" {
		t.fatalf("create returned no id")
		return
	}
	defer cleanup(id)

	t.check("slot disappears from availability", len(slots(date)) == len(before)-1)

	status, _ = createBooking(date, before[0])
	t.check("second booking of same slot returns 409", status == http.StatusConflict)

	status, body, err := do(http.MethodGet, "/api/bookings?phone="+url.QueryEscape(testPhone), nil, nil)
	list, _ := body["bookings"].([]interface{})
	t.check("listing by phone finds the booking", err == nil && status == http.StatusOK && len(list) >= 1)

	status, _, _ = do(http.MethodPatch, "/api/bookings/"+id, map[string]string{"status": "confirmed"}, nil)
	t.check("confirm returns 200", status == http.StatusOK)
	t.check("status is confirmed", bookingStatus(id) == "confirmed")
}

func scenarioCancelByMessage(t *T) {
	date := nextWeekday()
	free := slots(date)
	if len(free) == 0 {
		t.fatalf("no free slots on %s", date)
		return
	}
	status, created := createBooking(date, free[len(free)-1])
	id, _ := created["id"].(string)
	if status != http.StatusCreated || id == "" {
		t.fatalf("create failed with %d", status)
		return
	}
	defer cleanup(id)

	msgID := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	code, err := sendWhatsApp(msgID, "Отменить")
	t.check("webhook acknowledges with 200", err == nil && code == http.StatusOK)
	t.check("booking becomes cancelled", waitForStatus(id, "cancelled", 20*time.Second))

	code, err = sendWhatsApp(msgID, "Отменить")
	t.check("redelivery still acknowledged", err == nil && code == http.StatusOK)

	status, _, _ = do(http.MethodPatch, "/api/bookings/"+id, map[string]string{"status": "confirmed"}, nil)
	t.check("cancelled booking cannot be reopened", status == http.StatusConflict)
}

func scenarioOrdinaryMessageIgnored(t *T) {
	date := nextWeekday()
	free := slots(date)
	if len(free) < 2 {
		t.fatalf("not enough free slots on %s", date)
		return
	}
	status, created := createBooking(date, free[1])
	id, _ := created["id"].(string)
	if status != http.StatusCreated || id == "" {
		t.fatalf("create failed with %d", status)
		return
	}
	defer cleanup(id)

	code, err := sendWhatsApp(fmt.Sprintf("e2e-%d", time.Now().UnixNano()), "Спасибо, буду вовремя")
	t.check("webhook acknowledges with 200", err == nil && code == http.StatusOK)
	time.Sleep(2 * time.Second)
	t.check("booking stays active", bookingStatus(id) == "pending")
}

func scenarioReminderAuth(t *T) {
	status, _, err := do(http.MethodPost, "/api/reminders/send", nil, nil)
	if cronSecret == "" {
		t.check("reminders open without CRON_SECRET", err == nil && status != http.StatusUnauthorized)
		return
	}
	t.check("reminders without secret return 401", err == nil && status == http.StatusUnauthorized)

	status, body, err := do(http.MethodPost, "/api/reminders/send", nil, map[string]string{"Authorization": "Bearer " + cronSecret})
	ok := err == nil && (status == http.StatusOK || status == http.StatusBadRequest)
	t.check("reminders with secret are accepted", ok)
	if status == http.StatusOK {
		_, hasScanned := body["scanned"]
		t.check("sweep summary includes scanned", hasScanned)
	}
}

func main() {
	apiBase = os.Getenv("API_BASE_URL")
	cronSecret = os.Getenv("CRON_SECRET")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"booking-lifecycle", scenarioBookingLifecycle},
		{"cancel-by-message", scenarioCancelByMessage},
		{"ordinary-message", scenarioOrdinaryMessageIgnored},
		{"reminder-auth", scenarioReminderAuth},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "✅"
		if t.failed > 0 {
			status = "❌"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\n❌ SOME TESTS FAILED")
		os.Exit(1)
	}
	fmt.Println("\n✅ ALL TESTS PASSED")
}
