// Package main runs end-to-end smoke scenarios against a running API.
//
// Scenarios cover:
//   - Health and metrics endpoints
//   - Booking an appointment, replaying it, and rejecting a double booking
//   - Time-format validation (no meeting is provisioned)
//   - Patient registration, login and password-reset request
//   - Pricing visibility for public callers and admins
//   - Admin statistics
//
// The API must point at a meetings sandbox; each booking run creates and
// deletes one real meeting.
//
// Usage:
//
//	JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
//	JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go              # runs all
//	JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go booking      # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/auth"
)

var (
	apiBase    string
	adminToken string
	client     = &http.Client{Timeout: 60 * time.Second}
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

type response struct {
	status int
	body   []byte
}

func (r response) decode(dst interface{}) error {
	return json.Unmarshal(r.body, dst)
}

func call(method, path string, payload interface{}, token string, headers map[string]string) (response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return response{}, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, err
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func count(t *T, path string) int64 {
	resp, err := call(http.MethodGet, path, nil, adminToken, nil)
	if err != nil || resp.status != http.StatusOK {
		t.fatalf("count %s: status=%d err=%v", path, resp.status, err)
		return -1
	}
	var out struct {
		Count int64 `json:"count"`
	}
	_ = resp.decode(&out)
	return out.Count
}

// uniqueSlot spreads runs across future dates so repeated runs do not
// collide on the same booking reference.
func uniqueSlot() (string, string) {
	now := time.Now().UTC()
	date := now.AddDate(1, 0, int(now.Unix()%300)).Format(time.DateOnly)
	hour := 1 + int(now.UnixNano()/int64(time.Millisecond))%12
	return date, fmt.Sprintf("%d:%02d PM", hour, now.Minute())
}

func scenarioHealth(t *T) {
	resp, err := call(http.MethodGet, "/health", nil, "", nil)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("health returns 200", resp.status == http.StatusOK)
	t.check("health reports ok", strings.Contains(string(resp.body), `"ok"`))

	resp, err = call(http.MethodGet, "/metrics", nil, "", nil)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("metrics exposes runtime collectors", strings.Contains(string(resp.body), "go_goroutines"))
}

func scenarioBooking(t *T) {
	before := count(t, "/api/appoint/count")
	date, clock := uniqueSlot()
	doctor := "Dr. E2E " + uuid.NewString()[:8]
	booking := map[string]string{
		"Speciality":  "General Practice",
		"Doctor":      doctor,
		"DocEmail":    "doctor-e2e@example.com",
		"Name":        "E2E Patient",
		"Email":       "patient-e2e@example.com",
		"AppointDate": date,
		"AppointTime": clock,
		"Reason":      "smoke test",
	}
	key := map[string]string{"Idempotency-Key": uuid.NewString()}

	resp, err := call(http.MethodPost, "/api/appoint/create", booking, "", key)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("booking returns 201", resp.status == http.StatusCreated)
	var created struct {
		Success     bool `json:"success"`
		Appointment struct {
			ID         string `json:"id"`
			MeetingURL string `json:"meetingUrl"`
		} `json:"appointment"`
	}
	_ = resp.decode(&created)
	t.check("booking reports success", created.Success)
	t.check("meeting link attached", created.Appointment.MeetingURL != "")
	if created.Appointment.ID == "" {
		t.fatalf("no appointment id in %s", string(resp.body))
		return
	}
	t.check("count increments", count(t, "/api/appoint/count") == before+1)

	replay, err := call(http.MethodPost, "/api/appoint/create", booking, "", key)
	t.check("replay returns 200", err == nil && replay.status == http.StatusOK)
	t.check("replay returns same appointment", strings.Contains(string(replay.body), created.Appointment.ID))

	dup, err := call(http.MethodPost, "/api/appoint/create", booking, "", nil)
	t.check("double booking returns 409", err == nil && dup.status == http.StatusConflict)

	del, err := call(http.MethodDelete, "/api/appoint/"+created.Appointment.ID, nil, "", nil)
	t.check("delete returns 200", err == nil && del.status == http.StatusOK)
	del, err = call(http.MethodDelete, "/api/appoint/"+created.Appointment.ID, nil, "", nil)
	t.check("second delete returns 404", err == nil && del.status == http.StatusNotFound)
}

func scenarioInvalidTime(t *T) {
	before := count(t, "/api/appoint/count")
	for _, clock := range []string{"930 PM", "9:30PM", "13:00 PM"} {
		resp, err := call(http.MethodPost, "/api/appoint/create", map[string]string{
			"Speciality":  "General Practice",
			"Doctor":      "Dr. Clock",
			"Name":        "E2E Patient",
			"Email":       "patient-e2e@example.com",
			"AppointDate": "2031-01-01",
			"AppointTime": clock,
		}, "", nil)
		t.check(fmt.Sprintf("%q rejected with 400", clock), err == nil && resp.status == http.StatusBadRequest)
	}
	t.check("nothing stored", count(t, "/api/appoint/count") == before)
}

func scenarioPatientAccount(t *T) {
	email := fmt.Sprintf("e2e-%s@example.com", uuid.NewString()[:8])
	password := "e2e-password-123"

	resp, err := call(http.MethodPost, "/api/patient/register", map[string]interface{}{
		"name": "E2E Patient", "email": email, "password": password, "gender": "other", "age": 30,
	}, "", nil)
	t.check("register returns 201", err == nil && resp.status == http.StatusCreated)

	resp, err = call(http.MethodPost, "/api/patient/register", map[string]interface{}{
		"name": "E2E Patient", "email": email, "password": password,
	}, "", nil)
	t.check("duplicate email returns 409", err == nil && resp.status == http.StatusConflict)

	resp, err = call(http.MethodPost, "/api/patient/login", map[string]string{"email": email, "password": "wrong-password"}, "", nil)
	t.check("bad password returns 401", err == nil && resp.status == http.StatusUnauthorized)

	resp, err = call(http.MethodPost, "/api/patient/login", map[string]string{"email": email, "password": password}, "", nil)
	if err != nil || resp.status != http.StatusOK {
		t.fatalf("login failed: status=%d err=%v", resp.status, err)
		return
	}
	var session struct {
		Token string `json:"token"`
	}
	_ = resp.decode(&session)

	resp, err = call(http.MethodGet, "/api/patient/me", nil, session.Token, nil)
	t.check("me returns own profile", err == nil && resp.status == http.StatusOK && strings.Contains(string(resp.body), email))

	resp, err = call(http.MethodGet, "/api/payments/transactions", nil, session.Token, nil)
	t.check("transactions readable", err == nil && resp.status == http.StatusOK)

	resp, err = call(http.MethodPost, "/api/patient/forgot-password", map[string]string{"email": email}, "", nil)
	t.check("forgot-password returns 200", err == nil && resp.status == http.StatusOK)
	resp, err = call(http.MethodPost, "/api/patient/forgot-password", map[string]string{"email": "nobody-" + email}, "", nil)
	t.check("unknown email also returns 200", err == nil && resp.status == http.StatusOK)
}

func scenarioPricing(t *T) {
	name := "E2E Package " + uuid.NewString()[:8]
	resp, err := call(http.MethodPost, "/api/pricing/create", map[string]interface{}{
		"name": name, "type": "package", "basePriceCents": 10000, "discountedPriceCents": 8000,
	}, adminToken, nil)
	if err != nil || resp.status != http.StatusCreated {
		t.fatalf("create pricing: status=%d err=%v body=%s", resp.status, err, string(resp.body))
		return
	}
	var created struct {
		Pricing struct {
			ID string `json:"id"`
		} `json:"pricing"`
	}
	_ = resp.decode(&created)

	resp, _ = call(http.MethodGet, "/api/pricing/all", nil, "", nil)
	t.check("public list includes new entry", strings.Contains(string(resp.body), name))

	resp, err = call(http.MethodDelete, "/api/pricing/"+created.Pricing.ID, nil, adminToken, nil)
	t.check("deactivate returns 200", err == nil && resp.status == http.StatusOK)

	resp, _ = call(http.MethodGet, "/api/pricing/all", nil, "", nil)
	t.check("public list hides inactive entry", !strings.Contains(string(resp.body), name))
	resp, _ = call(http.MethodGet, "/api/pricing/all?all=true", nil, adminToken, nil)
	t.check("admin list shows inactive entry", strings.Contains(string(resp.body), name))
	resp, _ = call(http.MethodGet, "/api/pricing/all?all=true", nil, "", nil)
	t.check("anonymous all=true is forbidden", resp.status == http.StatusForbidden)

	resp, err = call(http.MethodDelete, "/api/pricing/"+created.Pricing.ID+"/hard", nil, adminToken, nil)
	t.check("hard delete returns 200", err == nil && resp.status == http.StatusOK)
}

func scenarioAdminStats(t *T) {
	resp, err := call(http.MethodGet, "/api/admin/stats", nil, adminToken, nil)
	if err != nil || resp.status != http.StatusOK {
		t.fatalf("stats: status=%d err=%v", resp.status, err)
		return
	}
	var stats map[string]interface{}
	_ = resp.decode(&stats)
	for _, key := range []string{"doctors", "patients", "admins", "appointments", "activePricing"} {
		_, ok := stats[key]
		t.check("stats has "+key, ok)
	}

	resp, _ = call(http.MethodGet, "/api/admin/stats", nil, "", nil)
	t.check("stats requires auth", resp.status == http.StatusUnauthorized)
}

func main() {
	apiBase = strings.TrimSuffix(os.Getenv("API_BASE_URL"), "/")
	secret := os.Getenv("JWT_SECRET")
	if apiBase == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and JWT_SECRET required")
		os.Exit(1)
	}
	issuer, err := auth.NewIssuer(secret, time.Hour)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	adminToken, _, err = issuer.Issue("e2e-superadmin", auth.RoleSuperAdmin, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"booking", scenarioBooking},
		{"invalid-time", scenarioInvalidTime},
		{"patient-account", scenarioPatientAccount},
		{"pricing", scenarioPricing},
		{"admin-stats", scenarioAdminStats},
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
