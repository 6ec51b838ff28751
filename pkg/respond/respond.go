package respond

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
	Field     string `json:"field,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, errorCode, detail string) {
	JSON(w, r, code, ErrorBody{Detail: detail, ErrorCode: errorCode})
}

func NoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
