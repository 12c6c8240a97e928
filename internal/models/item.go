package models

import "time"

// Project is the top-level scope for sections and items.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Section partitions a project; codes are unique within one project.
type Section struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is the parent entity documents hang off. Part numbers are
// globally unique.
type Item struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	SectionID     string    `json:"section_id,omitempty"`
	PartNumber    string    `json:"part_number"`
	Name          string    `json:"name"`
	ResponsibleID string    `json:"responsible_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
