package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/auth"
	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

type streamEvent struct {
	name    string
	message RealtimeMessage
}

// readEvents parses the server-sent event stream into the returned channel until the body closes.
func readEvents(t *testing.T, reader *bufio.Reader) <-chan streamEvent {
	t.Helper()
	events := make(chan streamEvent, 64)
	go func() {
		defer close(events)
		currentEventType := ""
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "event:"):
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				var message RealtimeMessage
				if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &message); err != nil {
					return
				}
				events <- streamEvent{name: currentEventType, message: message}
			}
		}
	}()
	return events
}

func awaitEvent(t *testing.T, events <-chan streamEvent, name string) RealtimeMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", name)
		case event, ok := <-events:
			if !ok {
				t.Fatalf("stream closed before %s event", name)
			}
			if event.name == name {
				return event.message
			}
		}
	}
}

func TestRealtimeStreamEmitsStoreChanges(t *testing.T) {
	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	fixture := newRouterFixture(t, tokenIssuer)
	server := httptest.NewServer(fixture.handler)
	t.Cleanup(server.Close)

	issued, err := tokenIssuer.IssueToken("editor-1")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	streamRequest, err := http.NewRequest(http.MethodGet, server.URL+"/events?access_token="+issued.Token, http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	events := readEvents(t, bufio.NewReader(streamResp.Body))

	ready := awaitEvent(t, events, realtimeEventReady)
	if ready.PageID != fixture.store.CurrentPage().ID {
		t.Fatalf("expected ready event for the current page, got %+v", ready)
	}

	addRequest, err := http.NewRequest(http.MethodPost, server.URL+"/blocks", bytes.NewBufferString(`{"type":"cta"}`))
	if err != nil {
		t.Fatalf("failed to construct add request: %v", err)
	}
	addRequest.Header.Set("Authorization", "Bearer "+issued.Token)
	addRequest.Header.Set("Content-Type", "application/json")
	addResp, err := http.DefaultClient.Do(addRequest)
	if err != nil {
		t.Fatalf("add request failed: %v", err)
	}
	var added pages.Block
	if err := json.NewDecoder(addResp.Body).Decode(&added); err != nil {
		t.Fatalf("failed to decode added block: %v", err)
	}
	_ = addResp.Body.Close()
	if addResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected add status: %d", addResp.StatusCode)
	}

	message := awaitEvent(t, events, string(pages.ChangeBlockAdded))
	if len(message.BlockIDs) != 1 || message.BlockIDs[0] != added.ID || message.Source != realtimeSourceBackend {
		t.Fatalf("unexpected block event %+v", message)
	}

	awaitEvent(t, events, realtimeEventHeartbeat)
}

func TestRealtimeStreamRejectsMissingToken(t *testing.T) {
	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte("test-signing-secret")})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	fixture := newRouterFixture(t, tokenIssuer)

	recorder := fixture.do(t, http.MethodGet, "/events", "", nil)
	requireStatus(t, recorder, http.StatusUnauthorized)
}
