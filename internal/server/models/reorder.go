package models

// ReorderItem asks for one document to be moved to Order.
type ReorderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// ReorderResult reports what happened to one ReorderItem. Applied is false
// when no document with that id exists in the collection.
type ReorderResult struct {
	ID      string `json:"id"`
	Order   int    `json:"order"`
	Applied bool   `json:"applied"`
}
