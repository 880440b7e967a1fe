package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ptulin/folio/server/internal/folio/types"
)

func errorBody(msg string) types.ErrorResponse {
	return types.ErrorResponse{Success: false, Error: msg}
}

// respond writes body as a protobuf Struct when the request was protobuf,
// JSON otherwise.
func respond(w http.ResponseWriter, asProto bool, status int, body any) {
	if asProto {
		st, err := toStruct(body)
		if err != nil {
			http.Error(w, "proto marshal error", http.StatusInternalServerError)
			return
		}
		writeProto(w, status, st)
		return
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
