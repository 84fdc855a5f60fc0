package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"/", 0, 50},
		{"/?offset=10&limit=20", 10, 20},
		{"/?offset=-5", 0, 50},
		{"/?limit=0", 0, 50},
		{"/?limit=9999", 0, 50},
		{"/?offset=abc&limit=abc", 0, 50},
	}

	for _, tt := range tests {
		offset, limit := pagination(testContext(tt.query))
		if offset != tt.wantOffset || limit != tt.wantLimit {
			t.Errorf("pagination(%q) = (%d, %d), want (%d, %d)",
				tt.query, offset, limit, tt.wantOffset, tt.wantLimit)
		}
	}
}

func TestIDParam(t *testing.T) {
	c := testContext("/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, err := idParam(c)
	if err != nil || id != 42 {
		t.Errorf("idParam = (%d, %v), want (42, nil)", id, err)
	}

	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	if _, err := idParam(c); err == nil {
		t.Error("non-numeric id accepted")
	}
}
