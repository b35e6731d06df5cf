package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/apperrors"
)

// respondError maps a service error onto an HTTP status and a machine
// readable reason code. Clients branch on the code, not the message.
func respondError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	c.JSON(statusFor(code), gin.H{"error": err.Error(), "code": code})
}

func statusFor(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VALIDATION_FAILURE", "INSUFFICIENT_BALANCE":
		return http.StatusBadRequest
	case "ALREADY_CLAIMED", "ALREADY_WON", "INVALID_STATE":
		return http.StatusConflict
	case "TRY_AGAIN":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// currentUserID reads the authenticated user's ID set by the JWT middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, ok := c.Get("userID")
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw.(string))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses an ObjectID path parameter, writing the 400 itself on
// failure.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "VALIDATION_FAILURE"})
		return primitive.NilObjectID, false
	}
	return id, true
}
