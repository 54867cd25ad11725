package models

import (
	"encoding/json"
	"time"
)

// Reserved document keys. They are managed by the store and never kept in
// Fields.
const (
	FieldID        = "id"
	FieldOrder     = "order"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Document is one record of a content collection. Fields is the open,
// resource-specific part of the record.
type Document struct {
	ID         string
	Collection string
	Order      int
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MarshalJSON flattens the document into {id, order, createdAt, updatedAt, ...fields}.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+4)
	for k, v := range d.Fields {
		out[k] = v
	}
	out[FieldID] = d.ID
	out[FieldOrder] = d.Order
	out[FieldCreatedAt] = d.CreatedAt
	out[FieldUpdatedAt] = d.UpdatedAt
	return json.Marshal(out)
}

// StripReserved returns a copy of fields without the store-managed keys.
func StripReserved(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case FieldID, FieldOrder, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}
