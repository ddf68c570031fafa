package handlers

import "net/http"

// ServiceName is the display name of the reporting service.
const ServiceName = "Jackie"

// GetInfo returns the data the index page is rendered from.
func GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"service_name": ServiceName})
}
