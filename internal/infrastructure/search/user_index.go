// Package search maintains the Elasticsearch projection of users used by
// GET /users/search. The index is written only by the worker.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// UserDocument is the indexed shape of a user.
type UserDocument struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserDocument(u *entity.User) UserDocument {
	return UserDocument{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Age:       u.Age,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

type UserIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

// NewUserIndex returns nil when es is nil, which every method treats as disabled.
func NewUserIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndex {
	if es == nil || index == "" {
		return nil
	}
	return &UserIndex{es: es, index: index, logger: logger}
}

func (x *UserIndex) Index(ctx context.Context, u *entity.User) error {
	if x == nil {
		return nil
	}
	b, err := json.Marshal(NewUserDocument(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID.String(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es index user %s: %w", u.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index user %s: %s", u.ID, res.Status())
	}
	if x.logger != nil {
		x.logger.WithField("user_id", u.ID).Debug("user indexed")
	}
	return nil
}

func (x *UserIndex) Delete(ctx context.Context, id string) error {
	if x == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id}.Do(c, x.es)
	if err != nil {
		return fmt.Errorf("es delete user %s: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete user %s: %s", id, res.Status())
	}
	return nil
}

// SearchQuery builds a multi_match on email and name, email weighted higher.
func SearchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
}

// ClampSize keeps search page sizes within 1..50, defaulting to 10.
func ClampSize(size int) int {
	if size <= 0 || size > 50 {
		return 10
	}
	return size
}

func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]UserDocument, error) {
	if x == nil {
		return []UserDocument{}, nil
	}
	b, err := json.Marshal(SearchQuery(q, ClampSize(size)))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(x.es.Search.WithContext(c), x.es.Search.WithIndex(x.index), x.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		if res.StatusCode == 404 {
			return []UserDocument{}, nil
		}
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UserDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]UserDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
