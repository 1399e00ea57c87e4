package sse

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestSend(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "json payload",
			event: Event{Event: "progress", ID: "1", Data: map[string]int{"indexed_pages": 3}},
			want:  "id: 1\nevent: progress\ndata: {\"indexed_pages\":3}\n\n",
		},
		{
			name:  "string payload with retry",
			event: Event{Data: "hello", Retry: 5000},
			want:  "retry: 5000\ndata: hello\n\n",
		},
		{
			name:  "multi-line payload",
			event: Event{Event: "note", Data: "a\nb"},
			want:  "event: note\ndata: a\ndata: b\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := bufio.NewWriter(&buf)
			if err := Send(w, tt.event); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Send wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendErrorAndKeepAlive(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := SendError(w, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if err := SendKeepAlive(w); err != nil {
		t.Fatal(err)
	}
	want := "event: error\ndata: {\"message\":\"boom\",\"type\":\"error\"}\n\n: ping\n\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
