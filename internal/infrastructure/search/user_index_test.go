package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
)

func TestNilIndexIsDisabled(t *testing.T) {
	x := NewUserIndex(nil, "users", nil)
	if x != nil {
		t.Fatal("expected nil index without a client")
	}
	if err := x.Index(context.Background(), &entity.User{}); err != nil {
		t.Errorf("Index on disabled index: %v", err)
	}
	hits, err := x.Search(context.Background(), "ada", 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("Search on disabled index = %v, %v", hits, err)
	}
}

func TestClampSize(t *testing.T) {
	for in, want := range map[int]int{0: 10, -3: 10, 7: 7, 50: 50, 51: 10} {
		if got := ClampSize(in); got != want {
			t.Errorf("ClampSize(%d) = %d, want %d", in, got, want)
		}
	}
}

// esServer answers like an Elasticsearch node; the client checks the product header.
func esServer(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	return es
}

func TestIndexAndSearch(t *testing.T) {
	id := uuid.New()
	var indexed UserDocument
	es := esServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/users/_doc/"):
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &indexed)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"` + id.String() + `","_source":{"id":"` + id.String() + `","email":"ada@example.com","name":"Ada"}}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	x := NewUserIndex(es, "users", nil)
	u := &entity.User{ID: id, Email: "ada@example.com", Name: "Ada", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := x.Index(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	if indexed.ID != id.String() || indexed.Email != "ada@example.com" {
		t.Errorf("indexed %+v", indexed)
	}

	hits, err := x.Search(context.Background(), "ada", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Name != "Ada" {
		t.Errorf("hits = %+v", hits)
	}
}
