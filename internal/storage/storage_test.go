package storage

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bigislandtech/meetup-sync/internal/event"
)

// copyFixture copies a dataset fixture into a temp dir and returns its path
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing fixture copy: %v", err)
	}
	return path
}

func byID(events []*event.Event) map[int]*event.Event {
	m := make(map[int]*event.Event, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	return m
}

func TestStore_LoadLegacy(t *testing.T) {
	store := New(copyFixture(t, "events.ts"), "allEvents")

	events, report, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if report.Loaded != 3 || report.Dropped != 1 {
		t.Errorf("report = %+v, want 3 loaded and 1 dropped", report)
	}
	if report.Format != "typescript" {
		t.Errorf("Format = %q, want typescript", report.Format)
	}

	got := byID(events)

	synced := got[1]
	if synced == nil {
		t.Fatal("record 1 missing")
	}
	if synced.SourceID != "306159379" {
		t.Errorf("meetupId alias not read: SourceID = %q", synced.SourceID)
	}
	if synced.DateISO != "2025-04-10" || synced.SyncStatus != event.SyncSynced {
		t.Errorf("optional fields not read: %+v", synced)
	}
	if !strings.Contains(synced.Description, "information.\n\nJoin") {
		t.Errorf("escaped newlines not decoded: %q", synced.Description)
	}

	roadmap := got[4]
	if roadmap == nil {
		t.Fatal("record 4 missing")
	}
	if roadmap.Title != `From Vision to Reality: Building Technology Roadmaps That "Actually" Work` {
		t.Errorf("single-quoted title = %q", roadmap.Title)
	}
	wantDesc := "If you’ve ever been part of a project that stalled {or failed}, this talk is for you. We'll explore a framework."
	if roadmap.Description != wantDesc {
		t.Errorf("Description = %q, want %q", roadmap.Description, wantDesc)
	}
	if roadmap.Status != event.StatusPast {
		t.Errorf("Status = %q, want past", roadmap.Status)
	}

	manual := got[7]
	if manual == nil {
		t.Fatal("record 7 missing")
	}
	if manual.SourceID != "" {
		t.Errorf("manual record should have no SourceID, got %q", manual.SourceID)
	}
	if manual.Description != "Bring a friend. Tabs: \"here\"\tthere" {
		t.Errorf("backtick description = %q", manual.Description)
	}
	if manual.Status != event.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", manual.Status)
	}
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	missing := New(filepath.Join(dir, "missing.ts"), "allEvents")
	if _, _, err := missing.Load(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	noArray := filepath.Join(dir, "other.ts")
	os.WriteFile(noArray, []byte("export const upcomingEvents: Event[] = [];\n"), 0644)
	if _, _, err := New(noArray, "allEvents").Load(); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("expected ErrRegionNotFound, got %v", err)
	}

	broken := filepath.Join(dir, "broken.ts")
	os.WriteFile(broken, []byte("export const allEvents: Event[] = [\n  { id: 1, title: \"unterminated },\n];\n"), 0644)
	if _, _, err := New(broken, "allEvents").Load(); err == nil {
		t.Error("expected error for malformed dataset")
	}

	badJSON := filepath.Join(dir, "events.json")
	os.WriteFile(badJSON, []byte(`{"events": [`), 0644)
	if _, _, err := New(badJSON, "allEvents").Load(); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestTSCodec_DecodeSkipsUnparseableRecord(t *testing.T) {
	content := []byte(`export const allEvents: Event[] = [
  { id: 1, title: "Kept", date: "March 13, 2025", location: "Kona" as const },
  { id: 2, title "missing colon", date: "April 1, 2025" },
  { id: 3, title: "Also kept", date: "May 8, 2025" },
];
`)

	events, dropped, err := TSCodec{ArrayName: "allEvents"}.Decode(content)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(events) != 2 || events[0].ID != 1 || events[1].ID != 3 {
		t.Fatalf("unexpected records: %+v", events)
	}
	if events[0].Location != "Kona" {
		t.Errorf("Location = %q, want Kona", events[0].Location)
	}
}

func TestJSONCodec_DecodeSkipsUnparseableRecord(t *testing.T) {
	content := []byte(`{"events": [
  {"id": 1, "title": "Kept"},
  {"id": "seven", "title": "Bad id type"},
  {"id": 2, "title": ["not", "a", "string"]},
  {"id": 3, "title": "Also kept"}
]}`)

	events, dropped, err := JSONCodec{}.Decode(content)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(events) != 2 || events[0].ID != 1 || events[1].ID != 3 {
		t.Fatalf("unexpected records: %+v", events)
	}
}

func TestStore_BlankFile(t *testing.T) {
	for _, name := range []string{"events.ts", "events.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte("\n  \n"), 0644); err != nil {
				t.Fatal(err)
			}
			store := New(path, "allEvents")

			events, _, err := store.Load()
			if err != nil {
				t.Fatalf("blank file should load as empty: %v", err)
			}
			if len(events) != 0 {
				t.Fatalf("expected no records, got %d", len(events))
			}

			if err := store.Save([]*event.Event{{ID: 1, Title: "First"}}, NewFileWriter()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			reloaded, _, err := store.Load()
			if err != nil || len(reloaded) != 1 {
				t.Fatalf("reload = %d records, err %v", len(reloaded), err)
			}
		})
	}
}

func TestStore_ArrayName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ts")
	content := `export const upcomingEvents: Event[] = [
  { id: 2, title: "Upcoming", date: "May 1, 2025", time: "", location: "", description: "", imageUrl: "", link: "" },
];

export const pastEvents: Event[] = [
  { id: 1, title: "Past", date: "March 1, 2025", time: "", location: "", description: "", imageUrl: "", link: "" },
];
`
	os.WriteFile(path, []byte(content), 0644)

	events, _, err := New(path, "pastEvents").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Past" {
		t.Errorf("expected only the pastEvents record, got %+v", events)
	}
}

func TestStore_SavePreservesSurroundingText(t *testing.T) {
	path := copyFixture(t, "events.ts")
	original, _ := os.ReadFile(path)
	store := New(path, "allEvents")

	events, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := store.Save(events, NewFileWriter()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	written, _ := os.ReadFile(path)
	text := string(written)

	prefixEnd := strings.Index(string(original), "export const allEvents")
	if !strings.HasPrefix(text, string(original)[:prefixEnd]) {
		t.Error("text before the array was not preserved")
	}
	if !strings.HasSuffix(text, "];\n\nexport const featuredEventId = 1;\n") {
		t.Errorf("text after the array was not preserved:\n%s", text[len(text)-80:])
	}
	if !strings.Contains(text, `    sourceId: "306159379",`) {
		t.Error("expected sourceId key in output")
	}
	if !strings.Contains(text, `    status: 'cancelled',`) {
		t.Error("expected single-quoted status")
	}
	if strings.Contains(text, "Draft event without an id") {
		t.Error("record without id should not be written back")
	}

	// newest first, undated last
	first := strings.Index(text, "id: 1,")
	second := strings.Index(text, "id: 4,")
	third := strings.Index(text, "id: 7,")
	if !(first < second && second < third) {
		t.Errorf("records not sorted newest first: %d, %d, %d", first, second, third)
	}

	backup, err := os.ReadFile(path + BackupSuffix)
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if !bytes.Equal(backup, original) {
		t.Error("backup does not match the original dataset")
	}
}

func TestStore_RoundTripIsStable(t *testing.T) {
	path := copyFixture(t, "events.ts")
	store := New(path, "allEvents")

	events, _, _ := store.Load()
	if err := store.Save(events, NewFileWriter()); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	first, _ := os.ReadFile(path)

	reloaded, report, err := store.Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if report.Dropped != 0 {
		t.Errorf("rewritten dataset dropped %d records", report.Dropped)
	}

	before := byID(events)
	for _, e := range reloaded {
		if *e != *before[e.ID] {
			t.Errorf("record %d changed across save/load:\n got  %+v\n want %+v", e.ID, e, before[e.ID])
		}
	}

	if err := store.Save(reloaded, NewFileWriter()); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Error("saving an unchanged dataset should be byte-identical")
	}
}

func TestStore_ReconcileSameScrapeIsNoOp(t *testing.T) {
	store := New(copyFixture(t, "events.ts"), "allEvents")
	existing, _, _ := store.Load()

	var scraped []*event.Event
	for _, e := range existing {
		if e.SourceID == "" {
			continue
		}
		c := e.Clone()
		c.ID = 0
		c.Status = ""
		c.SyncStatus = ""
		c.LastSyncedAt = ""
		scraped = append(scraped, c)
	}

	result := event.Reconcile(existing, scraped, event.ReconcileOptions{
		Now: func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	if result.HasChanges() {
		t.Errorf("expected no changes, got %d added and %d updated", len(result.Added), len(result.Updated))
	}
	if len(result.All()) != len(existing) {
		t.Errorf("expected %d records, got %d", len(existing), len(result.All()))
	}
}

func TestStore_SaveNewFile(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"typescript", "events.ts"},
		{"json", "events.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data", tt.file)
			store := New(path, "allEvents")

			events := []*event.Event{
				{ID: 1, Title: "Older", Date: "January 9, 2025", Time: "4:00 PM - 5:30 PM HST", Location: "VIRTUAL", SourceID: "305173606"},
				{ID: 2, Title: "Newer \"quoted\"", Date: "March 13, 2025", DateISO: "2025-03-13", Description: "line\nbreak", SyncStatus: event.SyncSynced},
			}
			if err := store.Save(events, NewFileWriter()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if _, err := os.Stat(path + BackupSuffix); !errors.Is(err, fs.ErrNotExist) {
				t.Error("no backup expected for a new dataset")
			}

			loaded, report, err := store.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if report.Loaded != 2 {
				t.Fatalf("expected 2 records, got %d", report.Loaded)
			}
			if loaded[0].ID != 2 {
				t.Errorf("expected newest record first, got id %d", loaded[0].ID)
			}
			got := byID(loaded)
			for _, want := range events {
				if *got[want.ID] != *want {
					t.Errorf("record %d = %+v, want %+v", want.ID, got[want.ID], want)
				}
			}
		})
	}
}

func TestJSONCodec_Decode(t *testing.T) {
	content := []byte(`{"events": [
  {"id": 3, "title": "Legacy key", "date": "March 13, 2025", "meetupId": "306059209"},
  {"id": 0, "title": "No id"},
  {"id": 5, "title": "New key", "date": "", "sourceId": "1", "meetupId": "2"}
]}`)

	events, dropped, err := JSONCodec{}.Decode(content)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SourceID != "306059209" {
		t.Errorf("meetupId alias not read: %q", events[0].SourceID)
	}
	if events[1].SourceID != "1" {
		t.Errorf("sourceId should win over meetupId, got %q", events[1].SourceID)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/data/events.ts", "typescript"},
		{"events.JSON", "json"},
		{"events.json", "json"},
		{"events", "typescript"},
	}
	for _, tt := range tests {
		if got := CodecFor(tt.path, "allEvents").Format(); got != tt.want {
			t.Errorf("CodecFor(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestDryRunWriter(t *testing.T) {
	path := copyFixture(t, "events.ts")
	original, _ := os.ReadFile(path)
	store := New(path, "allEvents")

	events, _, _ := store.Load()
	events[0].Title = "Changed in memory only"

	var out bytes.Buffer
	if err := store.Save(events, NewDryRunWriter(&out)); err != nil {
		t.Fatalf("dry-run Save failed: %v", err)
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(after, original) {
		t.Error("dry run modified the dataset")
	}
	if _, err := os.Stat(path + BackupSuffix); !errors.Is(err, fs.ErrNotExist) {
		t.Error("dry run should not create a backup")
	}

	text := out.String()
	if !strings.Contains(text, "DRY RUN - would write 3 events to "+path) {
		t.Errorf("missing summary line:\n%s", text)
	}
	if !strings.Contains(text, "\n...") {
		t.Error("expected truncated preview marker")
	}
	if !strings.Contains(text, "export interface Event") {
		t.Error("preview should start with the file content")
	}
}

func TestDryRunWriter_ShortContent(t *testing.T) {
	var out bytes.Buffer
	w := NewDryRunWriter(&out)
	if err := w.Write("events.json", []byte(`{"events": []}`), 0); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(out.String(), "...") {
		t.Error("short content should not be marked truncated")
	}
	if !strings.Contains(out.String(), `{"events": []}`) {
		t.Error("preview missing content")
	}
}
