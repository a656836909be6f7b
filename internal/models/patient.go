package models

import "time"

// Patient is a portal patient. FullName is the display name the platform
// uses when it auto-names filled form instances.
type Patient struct {
	ID        string    `json:"id" msgpack:"id"`
	FullName  string    `json:"fullName" msgpack:"fullName"`
	Email     string    `json:"email,omitempty" msgpack:"email"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
}
