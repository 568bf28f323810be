package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ParentRef points a file at its containing folder. The zero value is the
// root sentinel (top level, no parent). Clients historically sent the root
// as 0, "0" or an empty string; all of them normalize to Root here so the
// rest of the code never has to care.
type ParentRef struct {
	id uuid.UUID
}

var Root = ParentRef{}

func FolderRef(id uuid.UUID) ParentRef {
	return ParentRef{id: id}
}

func (p ParentRef) IsRoot() bool {
	return p.id == uuid.Nil
}

// Id returns the referenced folder id (uuid.Nil for the root sentinel).
func (p ParentRef) Id() uuid.UUID {
	return p.id
}

// ParseParentRef normalizes a boundary value to a ParentRef.
func ParseParentRef(s string) (ParentRef, error) {
	if s == "" || s == "0" {
		return Root, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Root, fmt.Errorf("invalid parentId %q", s)
	}
	return FolderRef(id), nil
}

func (p ParentRef) String() string {
	if p.IsRoot() {
		return "0"
	}
	return p.id.String()
}

func (p ParentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *ParentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("0")) {
		*p = Root
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid parentId %s", data)
	}
	ref, err := ParseParentRef(s)
	if err != nil {
		return err
	}
	*p = ref
	return nil
}
