package markduplicates

import (
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// maxLibraries is the largest number of distinct libraries the 8-bit
// libraryID field in a fingerprintKey can address.
const maxLibraries = 255

var rgTag = sam.Tag{'R', 'G'}

// libraryResolver maps a record's read-group tag to a small integer
// library id, grouping read groups that share an LB tag under the
// same id. Its read-group mapping is built once from the header and
// is read-only thereafter.
type libraryResolver struct {
	idByReadGroup map[string]uint8
	names         []string // names[id] is the library name reported in metrics.
	warnedUnknown bool
}

// newLibraryResolver builds a libraryResolver from header, grouping
// read groups with identical LB tags (including an absent LB, which
// is treated as one shared "empty" library). It fails if the header
// declares more distinct libraries than fit in an 8-bit field.
func newLibraryResolver(header *sam.Header) (*libraryResolver, error) {
	r := &libraryResolver{idByReadGroup: make(map[string]uint8)}

	seen := make(map[string]bool, len(header.RGs()))
	libraryID := make(map[string]uint8)
	nextID := uint8(0)

	for _, rg := range header.RGs() {
		if seen[rg.Name()] {
			return nil, errors.E(errors.Precondition, "duplicate read-group id in header: ", rg.Name())
		}
		seen[rg.Name()] = true

		lb := rg.Library()
		id, ok := libraryID[lb]
		if !ok {
			if int(nextID) >= maxLibraries {
				return nil, errors.E(errors.Precondition, "more than ", maxLibraries, " distinct libraries in header")
			}
			id = nextID
			libraryID[lb] = id
			nextID++
			name := lb
			if name == "" {
				name = "unknown"
			}
			r.names = append(r.names, name)
		}
		r.idByReadGroup[rg.Name()] = id
	}
	if len(r.names) == 0 {
		r.names = []string{"unknown"}
	}
	return r, nil
}

// nameOf returns the reporting name for a resolved library id.
func (r *libraryResolver) nameOf(id uint8) string {
	if int(id) >= len(r.names) {
		return "unknown"
	}
	return r.names[id]
}

// resolve returns the library id for r's read group. A record with no
// RG tag, or with an RG tag unknown to the header, falls back to
// library 0 with a one-time warning. A record with more than one RG
// tag is rejected outright.
func (r *libraryResolver) resolve(rec *sam.Record) (uint8, error) {
	var found *sam.Aux
	for i := range rec.AuxFields {
		aux := rec.AuxFields[i]
		if aux.Tag() != rgTag {
			continue
		}
		if found != nil {
			return 0, errors.E(errors.Precondition, "record ", rec.Name, " has more than one RG tag")
		}
		a := aux
		found = &a
	}
	if found == nil {
		r.warnUnknown(rec.Name, "missing")
		return 0, nil
	}
	name, ok := (*found).Value().(string)
	if !ok {
		r.warnUnknown(rec.Name, "malformed")
		return 0, nil
	}
	id, ok := r.idByReadGroup[name]
	if !ok {
		r.warnUnknown(rec.Name, name)
		return 0, nil
	}
	return id, nil
}

func (r *libraryResolver) warnUnknown(readName, readGroup string) {
	if r.warnedUnknown {
		return
	}
	r.warnedUnknown = true
	log.Error.Printf("record %s: %s read group, falling back to library 0", readName, readGroup)
}
