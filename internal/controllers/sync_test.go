package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/amaumene/watchenarr/internal/models"
	"github.com/amaumene/watchenarr/internal/services/mediaserver"
	"github.com/amaumene/watchenarr/internal/state"
	"github.com/amaumene/watchenarr/internal/utils"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeServer is a minimal media server with fixed users, catalogs and a
// record of state-mutation calls.
type fakeServer struct {
	t          *testing.T
	users      string            // JSON for GET /Users
	items      map[string]string // user id -> JSON for GET /Users/{id}/Items
	playedPost []string          // recorded POST paths
	server     *httptest.Server
}

func newFakeServer(t *testing.T, users string, items map[string]string) *fakeServer {
	f := &fakeServer{t: t, users: users, items: items}

	mux := http.NewServeMux()
	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.users)
	})
	mux.HandleFunc("/Users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f.playedPost = append(f.playedPost, r.URL.Path)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["LastPlayedDate"] == "" {
				t.Errorf("POST %s missing LastPlayedDate", r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// GET /Users/{id}/Items
		for userID, payload := range f.items {
			if r.URL.Path == "/Users/"+userID+"/Items" {
				fmt.Fprint(w, payload)
				return
			}
		}
		fmt.Fprint(w, `{"Items":[]}`)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestController(t *testing.T, sourceURL, destURL, adminUser string) (*SyncController, *models.Database, string) {
	t.Helper()
	dir := t.TempDir()

	db, err := models.NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	retry := utils.RetryPolicy{Interval: 0}
	logger := testLogger()

	source, err := mediaserver.NewClient(sourceURL, "src-key", retry, logger)
	if err != nil {
		t.Fatalf("Failed to create source client: %v", err)
	}
	dest, err := mediaserver.NewClient(destURL, "dst-key", retry, logger)
	if err != nil {
		t.Fatalf("Failed to create destination client: %v", err)
	}

	exclusions, err := utils.LoadExclusions(filepath.Join(dir, "missing.txt"))
	if err != nil {
		t.Fatalf("Failed to load exclusions: %v", err)
	}

	stateFile := filepath.Join(dir, "last_sync.json")
	ctrl := NewSyncController(source, dest, db, state.NewStore(stateFile), exclusions, adminUser, logger)
	return ctrl, db, stateFile
}

func TestRunReplaysMatchedWatchedItem(t *testing.T) {
	// Source user alice watched tt0111161; destination has the same item
	// as d1 and a linked alice account. Exactly one mutation call is
	// expected, against alice's destination id and d1.
	source := newFakeServer(t,
		`[{"Id":"src-alice","Name":"alice"}]`,
		map[string]string{
			"src-alice": `{"Items":[{"Id":"s1","Name":"The Shawshank Redemption","ProviderIds":{"Imdb":"tt0111161"},"UserData":{"LastPlayedDate":"2024-01-01T00:00:00Z"}}]}`,
		})

	dest := newFakeServer(t,
		`[{"Id":"admin-id","Name":"admin"},{"Id":"dest-alice","Name":"Alice"}]`,
		map[string]string{
			"admin-id": `{"Items":[{"Id":"d1","Name":"The Shawshank Redemption","ProviderIds":{"Imdb":"tt0111161"}}]}`,
		})

	ctrl, db, stateFile := newTestController(t, source.server.URL, dest.server.URL, "admin")

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(dest.playedPost) != 1 {
		t.Fatalf("Expected exactly 1 mutation call, got %d: %v", len(dest.playedPost), dest.playedPost)
	}
	if dest.playedPost[0] != "/Users/dest-alice/PlayedItems/d1" {
		t.Errorf("Unexpected mutation path %q", dest.playedPost[0])
	}

	// Run history records one matched item for alice.
	run, err := db.GetLastSuccessfulRun()
	if err != nil {
		t.Fatalf("Expected a recorded run: %v", err)
	}
	if run.TotalMatched() != 1 {
		t.Errorf("Expected 1 matched item in run history, got %d", run.TotalMatched())
	}

	// A successful run commits the last-sync timestamp.
	if _, err := os.Stat(stateFile); err != nil {
		t.Errorf("Expected state file to be written: %v", err)
	}
}

func TestRunSkipsUnlinkedUser(t *testing.T) {
	// Source user bob has no destination counterpart: no mutation calls.
	source := newFakeServer(t,
		`[{"Id":"src-bob","Name":"bob"}]`,
		map[string]string{
			"src-bob": `{"Items":[{"Id":"s1","Name":"Heat","ProviderIds":{"Imdb":"tt0113277"},"UserData":{"LastPlayedDate":"2024-01-01T00:00:00Z"}}]}`,
		})

	dest := newFakeServer(t,
		`[{"Id":"admin-id","Name":"admin"}]`,
		map[string]string{
			"admin-id": `{"Items":[{"Id":"d1","Name":"Heat","ProviderIds":{"Imdb":"tt0113277"}}]}`,
		})

	ctrl, db, _ := newTestController(t, source.server.URL, dest.server.URL, "admin")

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(dest.playedPost) != 0 {
		t.Errorf("Expected no mutation calls for bob, got %v", dest.playedPost)
	}

	run, err := db.GetLastSuccessfulRun()
	if err != nil {
		t.Fatalf("Expected a recorded run: %v", err)
	}
	if len(run.Users) != 1 || !run.Users[0].Skipped {
		t.Errorf("Expected bob recorded as skipped, got %+v", run.Users)
	}
}

func TestRunCountsUnmatchedItems(t *testing.T) {
	source := newFakeServer(t,
		`[{"Id":"src-alice","Name":"alice"}]`,
		map[string]string{
			"src-alice": `{"Items":[{"Id":"s1","Name":"Obscure Film","UserData":{"LastPlayedDate":"2024-01-01T00:00:00Z"}}]}`,
		})

	dest := newFakeServer(t,
		`[{"Id":"admin-id","Name":"admin"},{"Id":"dest-alice","Name":"alice"}]`,
		map[string]string{
			"admin-id": `{"Items":[{"Id":"d1","Name":"Something Else"}]}`,
		})

	ctrl, db, _ := newTestController(t, source.server.URL, dest.server.URL, "admin")

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(dest.playedPost) != 0 {
		t.Errorf("Expected no mutation calls, got %v", dest.playedPost)
	}

	run, err := db.GetLastSuccessfulRun()
	if err != nil {
		t.Fatalf("Expected a recorded run: %v", err)
	}
	if len(run.Users) != 1 || run.Users[0].Unmatched != 1 {
		t.Errorf("Expected 1 unmatched item recorded, got %+v", run.Users)
	}
}

func TestRunFailsWithoutAdminUser(t *testing.T) {
	source := newFakeServer(t, `[]`, nil)
	dest := newFakeServer(t, `[{"Id":"u1","Name":"alice"}]`, nil)

	ctrl, _, stateFile := newTestController(t, source.server.URL, dest.server.URL, "admin")

	if err := ctrl.Run(context.Background()); err == nil {
		t.Fatal("Expected error when admin user is missing")
	}

	// A failed run must not advance the sync window.
	if _, err := os.Stat(stateFile); !os.IsNotExist(err) {
		t.Errorf("Expected state file to stay unwritten, stat err: %v", err)
	}
}

func TestRunHonorsExclusionList(t *testing.T) {
	source := newFakeServer(t,
		`[{"Id":"src-alice","Name":"alice"}]`,
		map[string]string{
			"src-alice": `{"Items":[{"Id":"s1","Name":"Heat","ProviderIds":{"Imdb":"tt0113277"},"UserData":{"LastPlayedDate":"2024-01-01T00:00:00Z"}}]}`,
		})

	dest := newFakeServer(t,
		`[{"Id":"admin-id","Name":"admin"},{"Id":"dest-alice","Name":"alice"}]`,
		map[string]string{
			"admin-id": `{"Items":[{"Id":"d1","Name":"Heat","ProviderIds":{"Imdb":"tt0113277"}}]}`,
		})

	ctrl, db, _ := newTestController(t, source.server.URL, dest.server.URL, "admin")

	dir := t.TempDir()
	exclusionsFile := filepath.Join(dir, "excluded_users.txt")
	if err := os.WriteFile(exclusionsFile, []byte("# test exclusions\nAlice\n"), 0644); err != nil {
		t.Fatalf("Failed to write exclusions file: %v", err)
	}
	exclusions, err := utils.LoadExclusions(exclusionsFile)
	if err != nil {
		t.Fatalf("Failed to load exclusions: %v", err)
	}
	ctrl.exclusions = exclusions

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(dest.playedPost) != 0 {
		t.Errorf("Expected no mutation calls for excluded user, got %v", dest.playedPost)
	}

	run, err := db.GetLastSuccessfulRun()
	if err != nil {
		t.Fatalf("Expected a recorded run: %v", err)
	}
	if len(run.Users) != 0 {
		t.Errorf("Expected excluded user absent from run results, got %+v", run.Users)
	}
}
