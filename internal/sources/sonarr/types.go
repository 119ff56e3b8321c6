package sonarr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidParams is returned by ResolveParams when the configured root
// folder, profiles or tags do not exist in Sonarr
var ErrInvalidParams = errors.New("invalid Sonarr configuration")

// Candidate is a series returned by the Sonarr lookup endpoint
type Candidate struct {
	TVDBID int64
	Title  string

	// LibraryID is the Sonarr series id when the series is already in the
	// library, zero otherwise
	LibraryID int64

	// Raw is the lookup document, sent back to Sonarr when adding
	Raw json.RawMessage
}

// AddResult is the outcome of an add request. The concrete type is always
// one of Created, AlreadyExists or Rejected.
type AddResult interface {
	fmt.Stringer
	addResult()
}

// Created means Sonarr accepted the series and assigned it ID
type Created struct {
	ID int64
}

// AlreadyExists means the series was already in the Sonarr library
type AlreadyExists struct {
	// ID is the existing series id when Sonarr reported it
	ID *int64
}

// Rejected means Sonarr refused the series
type Rejected struct {
	Message string
}

var (
	_ AddResult = Created{}
	_ AddResult = AlreadyExists{}
	_ AddResult = Rejected{}
)

func (c Created) String() string {
	return fmt.Sprintf("created (id %d)", c.ID)
}

func (AlreadyExists) String() string {
	return "already exists"
}

func (r Rejected) String() string {
	return "rejected: " + r.Message
}

func (Created) addResult()       {}
func (AlreadyExists) addResult() {}
func (Rejected) addResult()      {}

// SystemStatus is the subset of /api/v3/system/status the client reads
type SystemStatus struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

type rootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

type namedItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}
