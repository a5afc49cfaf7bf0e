// Package catalog manages the set of relations backing a single malhf data
// directory: creating new ones, opening existing ones on demand, and
// closing them all together, adapted from the teacher's multi-table
// Database manager.
package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"malhf/pkg/hashfn"
	"malhf/pkg/reln"
)

// ErrInvalidName is returned when a relation name is not alphanumeric.
var ErrInvalidName = errors.New("catalog: relation name must be alphanumeric")

var nameRegexp = regexp.MustCompile(`\W`)

// Catalog tracks every relation currently open under one base directory.
type Catalog struct {
	basepath  string
	relations map[string]*reln.Relation
}

// Open creates the base directory if necessary and returns an empty
// Catalog rooted there.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, err
	}
	return &Catalog{basepath: dir, relations: make(map[string]*reln.Relation)}, nil
}

// BasePath returns the catalog's data directory.
func (c *Catalog) BasePath() string { return c.basepath }

func (c *Catalog) path(name string) string {
	return filepath.Join(c.basepath, name)
}

// Close closes every currently open relation, returning the first error
// encountered (if any) but attempting to close all of them regardless.
func (c *Catalog) Close() error {
	var first error
	for name, r := range c.relations {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.relations, name)
	}
	return first
}

// Create makes a brand-new relation and keeps it open for subsequent use.
func (c *Catalog) Create(name string, nattrs, npages, depth uint32, cvSpec string, algo hashfn.Algorithm) (*reln.Relation, error) {
	if nameRegexp.MatchString(name) {
		return nil, ErrInvalidName
	}
	r, err := reln.New(c.path(name), nattrs, npages, depth, cvSpec, algo)
	if err != nil {
		return nil, err
	}
	c.relations[name] = r
	return r, nil
}

// Get returns the named relation, opening it from disk in read-write mode
// if it isn't already tracked by this catalog.
func (c *Catalog) Get(name string) (*reln.Relation, error) {
	if r, ok := c.relations[name]; ok {
		return r, nil
	}
	if !reln.Exists(c.path(name)) {
		return nil, reln.ErrNoSuchRelation
	}
	r, err := reln.Open(c.path(name), "w")
	if err != nil {
		return nil, err
	}
	c.relations[name] = r
	return r, nil
}

// Relations returns the set of relations currently held open by this
// catalog, keyed by name.
func (c *Catalog) Relations() map[string]*reln.Relation {
	return c.relations
}
