package twitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func helixStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Id") != "cid-1" {
			t.Errorf("Client-Id = %q", r.Header.Get("Client-Id"))
		}
		switch r.URL.Query().Get("user_login") {
		case "steve":
			w.Write([]byte(`{"data":[{
				"user_login": "steve",
				"user_name": "Steve",
				"title": "anarchy monday",
				"viewer_count": 42
			}]}`))
		default:
			w.Write([]byte(`{"data":[]}`))
		}
	}))
}

func TestLiveStream(t *testing.T) {
	srv := helixStub(t)
	defer srv.Close()

	c := NewWithClient("cid-1", srv.Client(), srv.URL)

	s, err := c.LiveStream(context.Background(), "steve")
	if err != nil {
		t.Fatalf("LiveStream(steve): %v", err)
	}
	if s == nil {
		t.Fatal("live login yielded nil")
	}
	if s.Title != "anarchy monday" || s.ViewerCount != 42 {
		t.Errorf("stream = %+v", s)
	}
	if s.URL() != "https://twitch.tv/steve" {
		t.Errorf("URL = %q", s.URL())
	}

	s, err = c.LiveStream(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LiveStream(nobody): %v", err)
	}
	if s != nil {
		t.Errorf("offline login yielded %+v", s)
	}
}

func TestPresence_Lookup(t *testing.T) {
	srv := helixStub(t)
	defer srv.Close()

	p := Presence{Client: NewWithClient("cid-1", srv.Client(), srv.URL)}

	stream, err := p.Lookup(context.Background(), "steve")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if stream == nil || stream.Name != "Steve" || stream.Viewers != 42 {
		t.Errorf("presence = %+v", stream)
	}

	stream, err = p.Lookup(context.Background(), "nobody")
	if err != nil || stream != nil {
		t.Errorf("offline lookup = (%+v, %v)", stream, err)
	}
}
