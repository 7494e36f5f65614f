package testutil

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	db := NewMockDB(t)
	require.NotNil(t, db.DB)

	db.Mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, db.DB.Exec("DELETE FROM products WHERE id = 1").Error)
	db.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
	assert.Equal(t, NewTestUUID("test-cashier"), CashierID())
}

func TestContext(t *testing.T) {
	ctx := Context(t, 20*time.Millisecond)
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
}

func TestRequireEventually(t *testing.T) {
	start := time.Now()
	RequireEventually(t, func() bool { return time.Since(start) > 30*time.Millisecond }, time.Second)
}

func TestAPIClient(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   gin.H{"code": "ERR_BAD_REQUEST", "message": err.Error()},
			})
			return
		}
		body["auth"] = c.GetHeader("Authorization")
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})

	client := NewAPIClient(t, engine)

	w := client.As("secret").Do(http.MethodPost, "/echo", map[string]any{"name": "Amoxicillin"})
	RequireStatus(t, w, http.StatusOK)
	var data map[string]string
	env := DecodeEnvelope(t, w, &data)
	assert.True(t, env.Success)
	assert.Equal(t, "Amoxicillin", data["name"])
	assert.Equal(t, "Bearer secret", data["auth"])

	w = client.Do(http.MethodPost, "/echo", nil)
	RequireErrorCode(t, w, http.StatusBadRequest, "ERR_BAD_REQUEST")
}

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler("SaleCompleted")
	assert.Equal(t, []string{"SaleCompleted"}, h.EventTypes())

	require.NoError(t, h.Handle(t.Context(), NewTestEvent("SaleCompleted")))
	h.FailWith(errors.New("boom"))
	assert.Error(t, h.Handle(t.Context(), NewTestEvent("SaleVoided")))

	assert.Equal(t, 2, h.Count())
	assert.Equal(t, []string{"SaleCompleted", "SaleVoided"}, h.Types())
	assert.Len(t, h.Handled(), 2)
	WaitForEvents(t, h, 2, time.Second)
}
