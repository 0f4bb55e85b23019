package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bigislandtech/meetup-sync/internal/event"
)

// ErrRegionNotFound is returned when a TypeScript dataset has no matching array literal
var ErrRegionNotFound = errors.New("events array not found")

// Codec converts between dataset file content and records
type Codec interface {
	// Format names the encoding for logs and reports
	Format() string
	// Decode returns the records in content and how many were dropped because they
	// could not be parsed or lack an id. An error means the file as a whole is unusable.
	Decode(content []byte) ([]*event.Event, int, error)
	// Encode renders events into current, which is blank when the file does not exist
	Encode(current []byte, events []*event.Event) ([]byte, error)
}

// CodecFor picks the codec for a dataset path by its extension
func CodecFor(path, arrayName string) Codec {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONCodec{}
	}
	return TSCodec{ArrayName: arrayName}
}

// sortForWrite returns a copy of events ordered newest first
func sortForWrite(events []*event.Event) []*event.Event {
	sorted := make([]*event.Event, len(events))
	copy(sorted, events)
	event.SortByDate(sorted, false)
	return sorted
}

// TSCodec reads and writes an exported Event[] array in a TypeScript module
type TSCodec struct {
	ArrayName string
}

const tsInterface = `export interface Event {
  id: number;
  title: string;
  date: string;
  dateISO?: string;
  time: string;
  location: string;
  description: string;
  imageUrl: string;
  link: string;
  status?: 'upcoming' | 'past' | 'cancelled';
  sourceId?: string;
  lastSyncedAt?: string;
  syncStatus?: 'synced' | 'manual' | 'modified';
}
`

// Format implements Codec
func (c TSCodec) Format() string { return "typescript" }

// region locates the array literal. start..end spans the whole declaration including
// a trailing semicolon; body is the text between the brackets.
func (c TSCodec) region(content string) (start, end int, body string, err error) {
	header := regexp.MustCompile(`export\s+const\s+` + regexp.QuoteMeta(c.ArrayName) + `\s*:\s*Event\[\]\s*=\s*`)
	loc := header.FindStringIndex(content)
	if loc == nil || loc[1] >= len(content) || content[loc[1]] != '[' {
		return 0, 0, "", fmt.Errorf("%w: %s", ErrRegionNotFound, c.ArrayName)
	}

	s := &scanner{src: content, pos: loc[1]}
	if err := s.skipBalanced(); err != nil {
		return 0, 0, "", fmt.Errorf("scanning %s: %w", c.ArrayName, err)
	}
	body = content[loc[1]+1 : s.pos-1]

	end = s.pos
	for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
		end++
	}
	if end < len(content) && content[end] == ';' {
		end++
	} else {
		end = s.pos
	}
	return loc[0], end, body, nil
}

// Decode implements Codec
func (c TSCodec) Decode(content []byte) ([]*event.Event, int, error) {
	_, _, body, err := c.region(string(content))
	if err != nil {
		return nil, 0, err
	}

	objects, err := splitObjects(body)
	if err != nil {
		return nil, 0, fmt.Errorf("splitting records: %w", err)
	}

	events := make([]*event.Event, 0, len(objects))
	dropped := 0
	for _, obj := range objects {
		fields, err := parseObject(obj)
		if err != nil {
			dropped++
			continue
		}
		evt, ok := recordFromFields(fields)
		if !ok {
			dropped++
			continue
		}
		events = append(events, evt)
	}
	return events, dropped, nil
}

func recordFromFields(f map[string]string) (*event.Event, bool) {
	id, err := strconv.Atoi(f["id"])
	if err != nil || id <= 0 {
		return nil, false
	}

	sourceID := f["sourceId"]
	if sourceID == "" {
		sourceID = f["meetupId"]
	}

	return &event.Event{
		ID:           id,
		Title:        f["title"],
		Date:         f["date"],
		DateISO:      f["dateISO"],
		Time:         f["time"],
		Location:     f["location"],
		Description:  f["description"],
		ImageURL:     f["imageUrl"],
		Link:         f["link"],
		Status:       event.Status(f["status"]),
		SourceID:     sourceID,
		LastSyncedAt: f["lastSyncedAt"],
		SyncStatus:   event.SyncStatus(f["syncStatus"]),
	}, true
}

// Encode implements Codec
func (c TSCodec) Encode(current []byte, events []*event.Event) ([]byte, error) {
	literal := c.render(events)
	if len(bytes.TrimSpace(current)) == 0 {
		return []byte(tsInterface + "\n" + literal + "\n"), nil
	}

	content := string(current)
	start, end, _, err := c.region(content)
	if err != nil {
		return nil, err
	}
	return []byte(content[:start] + literal + content[end:]), nil
}

func (c TSCodec) render(events []*event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export const %s: Event[] = [\n", c.ArrayName)

	for _, e := range sortForWrite(events) {
		b.WriteString("  {\n")
		fmt.Fprintf(&b, "    id: %d,\n", e.ID)
		writeString(&b, "title", e.Title)
		writeString(&b, "date", e.Date)
		if e.DateISO != "" {
			writeString(&b, "dateISO", e.DateISO)
		}
		writeString(&b, "time", e.Time)
		writeString(&b, "location", e.Location)
		writeString(&b, "description", e.Description)
		writeString(&b, "imageUrl", e.ImageURL)
		writeString(&b, "link", e.Link)
		if e.Status != "" {
			if event.ValidStatus(e.Status) {
				fmt.Fprintf(&b, "    status: '%s',\n", e.Status)
			} else {
				writeString(&b, "status", string(e.Status))
			}
		}
		if e.SourceID != "" {
			writeString(&b, "sourceId", e.SourceID)
		}
		if e.LastSyncedAt != "" {
			writeString(&b, "lastSyncedAt", e.LastSyncedAt)
		}
		if e.SyncStatus != "" {
			writeString(&b, "syncStatus", string(e.SyncStatus))
		}
		b.WriteString("  },\n")
	}

	b.WriteString("];")
	return b.String()
}

func writeString(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "    %s: %s,\n", key, quote(value))
}

// JSONCodec reads and writes a {"events": [...]} document
type JSONCodec struct{}

type jsonRecord struct {
	event.Event
	MeetupID string `json:"meetupId,omitempty"`
}

// Format implements Codec
func (JSONCodec) Format() string { return "json" }

// Decode implements Codec
func (JSONCodec) Decode(content []byte) ([]*event.Event, int, error) {
	var doc struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, 0, fmt.Errorf("parsing dataset: %w", err)
	}

	events := make([]*event.Event, 0, len(doc.Events))
	dropped := 0
	for _, raw := range doc.Events {
		var rec jsonRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID <= 0 {
			dropped++
			continue
		}
		evt := rec.Event
		if evt.SourceID == "" {
			evt.SourceID = rec.MeetupID
		}
		events = append(events, &evt)
	}
	return events, dropped, nil
}

// Encode implements Codec
func (JSONCodec) Encode(_ []byte, events []*event.Event) ([]byte, error) {
	doc := struct {
		Events []*event.Event `json:"events"`
	}{Events: sortForWrite(events)}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding dataset: %w", err)
	}
	return append(data, '\n'), nil
}
