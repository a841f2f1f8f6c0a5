package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Run(router *gin.Engine, port string) error {
	if err := router.Run(":" + port); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
