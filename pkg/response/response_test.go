package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSuccessAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { Success(c, gin.H{"price": 10.45}) })
	r.GET("/bad", func(c *gin.Context) {
		ErrorWithStatus(c, http.StatusBadRequest, "volatility must be positive", "INVALID_CONFIG")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var ok struct {
		Code int                `json:"code"`
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ok); err != nil || ok.Code != 0 || ok.Data["price"] != 10.45 {
		t.Fatalf("success body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	var bad Response
	if err := json.Unmarshal(w.Body.Bytes(), &bad); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusBadRequest || bad.Code != http.StatusBadRequest || bad.ErrorCode != "INVALID_CONFIG" {
		t.Fatalf("error body = %s", w.Body.String())
	}
}
