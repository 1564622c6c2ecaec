package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/circuitlink/backend/pkg/apperror"
)

// httpError converts a service error into an echo HTTP error using the
// apperror taxonomy.
func httpError(err error) error {
	return echo.NewHTTPError(apperror.MapErrorToStatus(err), err.Error())
}

// callerID resolves the acting user: the verified Firebase UID when auth
// middleware ran, otherwise the userId query parameter.
func callerID(c echo.Context) string {
	if uid, ok := c.Get("firebaseUID").(string); ok && uid != "" {
		return uid
	}
	return c.QueryParam("userId")
}

// statusOK is the envelope used by mutation endpoints.
func statusOK(message string) map[string]any {
	return map[string]any{"status": "OK", "message": message}
}

// statusCreated is statusOK plus the new document's ID.
func statusCreated(message, docID string) map[string]any {
	out := statusOK(message)
	out["docId"] = docID
	return out
}
