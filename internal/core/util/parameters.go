package util

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

func ParamsToMap[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	return params, nil
}

func Serialize(data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)

	if err != nil {
		return nil, err
	}

	return json.RawMessage(raw), nil
}
