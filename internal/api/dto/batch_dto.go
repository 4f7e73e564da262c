package dto

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	ErrIDsMissing  = errors.New("ids is required")
	ErrIDsNotArray = errors.New("ids must be an array of integers")
)

// BatchRequest is the body of every transition endpoint.
type BatchRequest struct {
	IDs json.RawMessage `json:"ids"`
}

// ParseIDs decodes ids, refusing anything that is not a JSON array of integers.
func (r BatchRequest) ParseIDs() ([]int64, error) {
	raw := bytes.TrimSpace(r.IDs)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrIDsMissing
	}
	if raw[0] != '[' {
		return nil, ErrIDsNotArray
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, ErrIDsNotArray
	}
	return ids, nil
}
