// Package repository translates between Fedora repository URIs and the IIIF
// IDs used in manifest URLs. Repository path separators ('/') are swapped
// for a separator that is safe inside a single URL path segment.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPathSeparator replaces '/' when converting a repository path to a IIIF ID.
const DefaultPathSeparator = ":"

// ErrInvalidIdentifier means a IIIF ID did not carry the configured prefix.
var ErrInvalidIdentifier = errors.New("invalid IIIF identifier")

// ErrForeignURI means a resource URI does not belong to the configured repository.
var ErrForeignURI = errors.New("URI not part of configured repository")

// Service converts repository URIs to IIIF IDs and back.
type Service struct {
	Endpoint string // base URL of the source repository
	Prefix   string // prefix string used in the IIIF IDs
	PathSep  string // separator standing in for '/' in IIIF IDs
}

// NewService creates a converter for the given repository endpoint and ID prefix.
func NewService(endpoint string, prefix string) *Service {
	return &Service{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Prefix:   prefix,
		PathSep:  DefaultPathSeparator,
	}
}

// ResourceURI converts a IIIF ID to a repository URI.
func (s *Service) ResourceURI(iiifID string) (string, error) {
	if !strings.HasPrefix(iiifID, s.Prefix) {
		return "", fmt.Errorf("%w: expecting %q<local part>, got %q", ErrInvalidIdentifier, s.Prefix, iiifID)
	}
	localPart := strings.TrimPrefix(iiifID, s.Prefix)
	return s.Endpoint + "/" + strings.ReplaceAll(localPart, s.PathSep, "/"), nil
}

// IIIFID converts a repository URI to a IIIF ID.
func (s *Service) IIIFID(resourceURI string) (string, error) {
	if !strings.HasPrefix(resourceURI, s.Endpoint) {
		return "", fmt.Errorf("%w: %s is not under %s", ErrForeignURI, resourceURI, s.Endpoint)
	}
	localPart := strings.TrimPrefix(resourceURI, s.Endpoint+"/")
	return s.Prefix + strings.ReplaceAll(localPart, "/", s.PathSep), nil
}
