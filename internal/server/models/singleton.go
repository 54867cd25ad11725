package models

import (
	"encoding/json"
	"time"
)

// Singleton keys.
const (
	SingletonHero    = "hero"
	SingletonAbout   = "about"
	SingletonContact = "contact"
	SingletonCV      = "cv"
)

// Singleton is a record stored under a fixed key, overwritten in place.
type Singleton struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// CV points at the current resume.
type CV struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	UpdatedAt time.Time `json:"updatedAt"`
}
