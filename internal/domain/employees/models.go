package employees

import "time"

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusOnLeave  = "OnLeave"
)

type Employee struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"fullName"`
	TagName      string     `json:"tagName"`
	TagLastName  string     `json:"tagLastName"`
	JobFunctions string     `json:"jobFunctions,omitempty"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	Status       string     `json:"status"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Mobile       string     `json:"mobile,omitempty"`
	PhotoURL     string     `json:"photoUrl"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Draft is the employee data assembled while a multipart body is consumed.
// It is never persisted as is; Service.Create turns it into a NewEmployee once
// the photo has been uploaded.
type Draft struct {
	FullName     string
	TagName      string
	TagLastName  string
	JobFunctions string
	Birthday     string

	FileName string
	MIMEType string
	File     []byte
}

type NewEmployee struct {
	FullName     string
	TagName      string
	TagLastName  string
	JobFunctions string
	Birthday     *time.Time
	Status       string
	PhotoURL     string
}

// Patch carries a partial update. Nil fields are left untouched; an empty
// string clears an optional field.
type Patch struct {
	FullName     *string `json:"fullName"`
	TagName      *string `json:"tagName"`
	TagLastName  *string `json:"tagLastName"`
	JobFunctions *string `json:"jobFunctions"`
	Birthday     *string `json:"birthday"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Mobile       *string `json:"mobile"`
	Status       *string `json:"status"`
}

type SearchFilter struct {
	Name        string
	JobFunction string
	Status      string
	Limit       int
	Offset      int
}

type SearchResult struct {
	Employees []Employee `json:"employees"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
