package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/ptulin/folio/server/internal/folio/types"
)

// maxRequestBody caps every request body. The longest field, message, is
// limited to 5000 characters.
const maxRequestBody = 64 << 10

// maxMultipartMemory is the in-memory share of a multipart form.
const maxMultipartMemory = 1 << 20

var errEmptyBody = errors.New("empty body")

// decodeActionRequest reads the POST body as JSON, a form or a protobuf
// Struct, depending on Content-Type. Anything that is not a form or
// protobuf is parsed as JSON so text/plain posts work.
func decodeActionRequest(w http.ResponseWriter, r *http.Request) (types.ActionRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case isProtobuf(r):
		return readStructRequest(r)
	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return types.ActionRequest{}, fmt.Errorf("parse form: %w", err)
		}
		return requestFromValues(r.PostForm), nil
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return types.ActionRequest{}, fmt.Errorf("parse multipart: %w", err)
		}
		return requestFromValues(r.PostForm), nil
	default:
		return decodeJSON(r.Body)
	}
}

func decodeJSON(body io.Reader) (types.ActionRequest, error) {
	var req types.ActionRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errEmptyBody
		}
		return req, fmt.Errorf("decode json: %w", err)
	}
	return req, nil
}

func requestFromValues(v url.Values) types.ActionRequest {
	return types.ActionRequest{
		Action:          v.Get("action"),
		FirstName:       v.Get("firstName"),
		LastName:        v.Get("lastName"),
		Email:           v.Get("email"),
		Phone:           v.Get("phone"),
		Message:         v.Get("message"),
		RequestPassword: types.ParseFlag(v.Get("requestPassword")),
		Password:        v.Get("password"),
		Code:            v.Get("code"),
		PasswordID:      v.Get("passwordID"),
		IP:              v.Get("ip"),
		UserAgent:       v.Get("userAgent"),
	}
}
