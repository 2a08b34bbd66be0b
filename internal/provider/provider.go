package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const RecordTypeA = "A"

var (
	ErrInvalidZone       = errors.New("invalid zone")
	ErrInvalidCredential = errors.New("invalid API token")
)

// Provider reads and writes the address records of a zone.
type Provider interface {
	Records(ctx context.Context, zone string) ([]Record, error)
	// SubmitBatch applies every patch and post in one request and returns the
	// ids of created records in post order.
	SubmitBatch(ctx context.Context, zone string, batch Batch) ([]string, error)
}

// Resolver looks up the public IP address of this machine.
type Resolver interface {
	PublicIP(ctx context.Context) (string, error)
}

type Record struct {
	ID      string
	Name    string
	Type    string
	Content string
}

type Patch struct {
	ID      string
	Content string
}

type Post struct {
	Name    string
	Content string
	TTL     int
}

type Batch struct {
	Patches []Patch
	Posts   []Post
}

func (b Batch) IsEmpty() bool {
	return len(b.Patches) == 0 && len(b.Posts) == 0
}

// UpdateBatch points every record id at content.
func UpdateBatch(ids []string, content string) Batch {
	patches := make([]Patch, 0, len(ids))
	for _, id := range ids {
		patches = append(patches, Patch{ID: id, Content: content})
	}
	return Batch{Patches: patches}
}

type APIError struct {
	Code    int
	Message string
}

// BatchError is returned when the API accepted a request but reported
// errors in the response body.
type BatchError struct {
	Errors []APIError
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", ae.Code, ae.Message))
	}
	return "api errors: " + strings.Join(msgs, ", ")
}
