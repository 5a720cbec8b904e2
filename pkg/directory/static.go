package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// User is one directory entry.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	DesignationID string `json:"designation_id"`
	Active        bool   `json:"active"`
}

// Static is an in-memory directory, typically loaded from a JSON file.
type Static struct {
	users map[string]User
}

// NewStatic creates a directory over the given users.
func NewStatic(users []User) *Static {
	s := &Static{users: make(map[string]User, len(users))}

	for _, user := range users {
		s.users[user.ID] = user
	}

	return s
}

// LoadStatic reads a JSON array of users from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(strings.TrimPrefix(path, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var users []User

	err = json.Unmarshal(data, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	return NewStatic(users), nil
}

func (s *Static) ResolveApprovers(_ context.Context, designationID string) ([]string, error) {
	if designationID == "" {
		return nil, ErrDesignationRequired
	}

	ids := make([]string, 0)

	for _, user := range s.users {
		if user.Active && user.DesignationID == designationID {
			ids = append(ids, user.ID)
		}
	}

	return normalize(ids), nil
}

// EmailOf returns the e-mail address of the user, empty when unknown.
func (s *Static) EmailOf(_ context.Context, userID string) (string, error) {
	return s.users[userID].Email, nil
}
