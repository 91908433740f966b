package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/axiom/internal/httpclient"
)

func TestDiscoverAndImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" {
			t.Errorf("missing api key header")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["q"] != "golang" {
			t.Errorf("unexpected query %v", body["q"])
		}
		switch r.URL.Path {
		case "/search":
			_, _ = w.Write([]byte(`{"organic":[{"title":"Go","link":"https://go.dev","snippet":"Build simple software"},{"title":"Tour","link":"https://go.dev/tour","snippet":"Tour"}]}`))
		case "/images":
			_, _ = w.Write([]byte(`{"images":[{"imageUrl":"https://img/1.png"},{"imageUrl":""},{"imageUrl":"https://img/2.png"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := Search{ApiKey: "key", Endpoint: srv.URL, HTTP: httpclient.New(time.Second, 0, 0)}
	res, err := s.Discover(context.Background(), "golang", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 1 || res[0].URL != "https://go.dev" || res[0].Content != "Build simple software" {
		t.Fatalf("unexpected results %+v", res)
	}
	imgs, err := s.Images(context.Background(), "golang", 6)
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(imgs) != 2 || imgs[1] != "https://img/2.png" {
		t.Fatalf("unexpected images %v", imgs)
	}
}
