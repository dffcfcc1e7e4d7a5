package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func TestSuccessWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-1")

	Success(c, http.StatusCreated, map[string]string{"id": "1"}, "created", NewPagination(1, 20, 41))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status    int               `json:"status"`
		RequestID string            `json:"request_id"`
		Success   bool              `json:"success"`
		Data      map[string]string `json:"data"`
		Meta      Pagination        `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Status != http.StatusCreated || body.RequestID != "req-1" {
		t.Errorf("unexpected envelope %+v", body)
	}
	if body.Data["id"] != "1" {
		t.Errorf("data = %v", body.Data)
	}
	if body.Meta.TotalPages != 3 || body.Meta.Total != 41 {
		t.Errorf("meta = %+v", body.Meta)
	}
}

func TestErrorDefaultsToBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error[any](c, 0, "invalid payload", map[string]string{"email": "is required"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
	if body["data"] != nil {
		t.Errorf("data = %v, want null", body["data"])
	}
}

func TestNewPaginationZeroTotal(t *testing.T) {
	p := NewPagination(1, 20, 0)
	if p.TotalPages != 0 {
		t.Errorf("total pages = %d", p.TotalPages)
	}
}
