package event

import "testing"

func TestExtractSourceID(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.meetup.com/big-island-tech/events/306159379/", "306159379"},
		{"https://www.meetup.com/big-island-tech/events/306159379/?eventOrigin=group", "306159379"},
		{"https://www.meetup.com/big-island-tech/events/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			if got := ExtractSourceID(tt.link); got != tt.want {
				t.Errorf("ExtractSourceID(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}

func TestMaxID(t *testing.T) {
	if got := MaxID(nil); got != 0 {
		t.Errorf("MaxID(nil) = %d, want 0", got)
	}
	events := []*Event{{ID: 3}, {ID: 9}, {ID: 4}}
	if got := MaxID(events); got != 9 {
		t.Errorf("MaxID() = %d, want 9", got)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusUpcoming, StatusPast, StatusCancelled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	if ValidStatus("postponed") {
		t.Error("ValidStatus(postponed) = true, want false")
	}
}
