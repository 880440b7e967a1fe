package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ptulin/folio/server/internal/folio/types"
)

const protobufContentType = "application/x-protobuf"

// isProtobuf reports whether the request carries a protobuf
// google.protobuf.Struct instead of JSON or a form.
func isProtobuf(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == protobufContentType || mediaType == "application/protobuf"
}

// readStructRequest decodes a Struct body and maps its fields onto
// ActionRequest through the same JSON rules as a JSON body.
func readStructRequest(r *http.Request) (types.ActionRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return types.ActionRequest{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return types.ActionRequest{}, errEmptyBody
	}

	var st structpb.Struct
	if err := proto.Unmarshal(body, &st); err != nil {
		return types.ActionRequest{}, fmt.Errorf("unmarshal struct: %w", err)
	}

	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return types.ActionRequest{}, fmt.Errorf("remarshal struct: %w", err)
	}
	var req types.ActionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return types.ActionRequest{}, fmt.Errorf("decode struct: %w", err)
	}
	return req, nil
}

// toStruct converts a JSON response body into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
