package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

type TimeHandler struct {
	clock clockwork.Clock
}

func NewTimeHandler(clk clockwork.Clock) *TimeHandler {
	return &TimeHandler{clock: clk}
}

// ServerTime is the authoritative clock endpoint used by client-side clock
// sync. Kept as small as possible so the round trip measures network, not
// handler work.
func (h *TimeHandler) ServerTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"server_time_ms": h.clock.Now().UnixMilli()})
}
