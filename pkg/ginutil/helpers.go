package ginutil

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID extracts a positive numeric id from path parameters.
// Zero, negative and non-numeric values are rejected.
func ParamID(c *gin.Context, key string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
