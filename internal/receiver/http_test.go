package receiver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/pathsync/internal/notify"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

const testSecret = "shared-test-secret"

func newTestServer(t *testing.T, secret string) (*httptest.Server, *Service) {
	t.Helper()
	svc := NewService(context.Background(), Config{})
	r := chi.NewRouter()
	NewAPI(svc, secret).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestPushAndLastSeenOverHTTP(t *testing.T) {
	srv, svc := newTestServer(t, testSecret)

	client, err := notify.Dial(notify.HTTPConfig{
		BaseURL:      srv.URL,
		SharedSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	u := paths.NewUpdate(paths.SeqBase+1, false)
	u.ChangeFor("db1").Add([]string{"warehouse", "db1"})
	if err := client.Push(context.Background(), u); err != nil {
		t.Fatalf("Push: %v", err)
	}

	seen, err := client.LastSeen(context.Background())
	if err != nil {
		t.Fatalf("LastSeen: %v", err)
	}
	if seen != paths.SeqBase+1 {
		t.Fatalf("last seen = %d, esperaba %d", seen, paths.SeqBase+1)
	}
	if got := svc.PathsFor("db1"); len(got) != 1 || got[0] != "/warehouse/db1" {
		t.Fatalf("paths db1 = %v", got)
	}
}

func TestPushWithoutTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	// Cliente sin secreto: no manda Authorization. Dial hace un last-seen de
	// validación, así que el rechazo aparece ahí mismo.
	if _, err := notify.Dial(notify.HTTPConfig{BaseURL: srv.URL}); err == nil {
		t.Fatalf("Dial sin token debería fallar contra un receiver con secreto")
	}
}

func TestPushWithWrongSecretRejected(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	if _, err := notify.Dial(notify.HTTPConfig{
		BaseURL:      srv.URL,
		SharedSecret: "otro-secreto",
	}); err == nil {
		t.Fatalf("Dial con secreto equivocado debería fallar")
	}
}

func TestHealthzNoAuth(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d, esperaba 200", resp.StatusCode)
	}
}

func TestImageEndpoint(t *testing.T) {
	srv, svc := newTestServer(t, testSecret)

	img := paths.NewUpdate(paths.SeqBase, true)
	img.ChangeFor("db1").Add([]string{"warehouse", "db1"})
	img.ChangeFor("db1.t1").Add([]string{"warehouse", "db1", "t1"})
	if _, err := svc.Apply(context.Background(), img); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	tok, err := notify.MintToken(testSecret, "test")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/sync/image", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/sync/image: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("image = %d, esperaba 200", resp.StatusCode)
	}

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.LastSeen != paths.SeqBase {
		t.Fatalf("last_seen = %d, esperaba %d", out.LastSeen, paths.SeqBase)
	}
	if len(out.Objects) != 2 || out.Objects["db1"][0] != "/warehouse/db1" {
		t.Fatalf("objects = %v", out.Objects)
	}
}

func TestStaleRetryAcksCurrentSeq(t *testing.T) {
	srv, svc := newTestServer(t, testSecret)

	client, err := notify.Dial(notify.HTTPConfig{
		BaseURL:      srv.URL,
		SharedSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	u := paths.NewUpdate(paths.SeqBase+1, false)
	u.ChangeFor("db1").Add([]string{"warehouse", "db1"})
	if err := client.Push(context.Background(), u); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// El mismo envelope de nuevo (retry): el receiver lo descarta pero
	// contesta 200 con el last seen vigente.
	if err := client.Push(context.Background(), u); err != nil {
		t.Fatalf("Push retry: %v", err)
	}
	if got := svc.LastSeen(); got != paths.SeqBase+1 {
		t.Fatalf("last seen = %d", got)
	}
}
