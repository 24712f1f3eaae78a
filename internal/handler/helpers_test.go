package handler

import (
	"encoding/json"
	"net/http/httptest"
)

func jsonDecode(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
