package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the error envelope. Successful calls write the resource itself.
type Response struct {
	Status  int    `json:"-"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success responses
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error responses
func errorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, &Response{
		Status: status,
		Error:  message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	errorResponse(c, http.StatusUnauthorized, message)
}

func BadRequest(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	errorResponse(c, http.StatusInternalServerError, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	errorResponse(c, http.StatusServiceUnavailable, message)
}

func RequestTooLarge(c *gin.Context, message string) {
	errorResponse(c, http.StatusRequestEntityTooLarge, message)
}
