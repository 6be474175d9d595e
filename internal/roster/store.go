package roster

import (
	"errors"
	"sync"
)

var (
	ErrNoRoster           = errors.New("no active roster")
	ErrDetachmentNotFound = errors.New("detachment not found")
	ErrEntryNotFound      = errors.New("entry not found")
)

// Store owns the single mutable Roster aggregate on the builder side.
// Every command is an atomic read-modify-write under the lock; derived
// fields are recomputed before the command returns. Mutations are
// applied optimistically ahead of the authority and overwritten
// wholesale by SyncFromResponse when its answer arrives.
type Store struct {
	mu     sync.RWMutex
	roster *Roster
}

func NewStore() *Store { return &Store{} }

// SyncFromResponse replaces the entire aggregate with an authoritative
// snapshot. No merging: stale optimistic state must not survive.
// The validation verdict resets to unknown until the next verdict.
func (s *Store) SyncFromResponse(snap Roster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := snap.Clone()
	r.Validation = Validation{}
	r.Recompute()
	s.roster = &r
}

// SetRoster makes a roster active. Same replacement semantics as
// SyncFromResponse.
func (s *Store) SetRoster(snap Roster) { s.SyncFromResponse(snap) }

// Roster returns a deep copy of the aggregate, or false when none is
// active.
func (s *Store) Roster() (Roster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roster == nil {
		return Roster{}, false
	}
	return s.roster.Clone(), true
}

// Active reports whether a roster is loaded.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster != nil
}

// ClearRoster resets to the empty state. Any in-flight authority
// response for the old roster should be discarded by the caller.
func (s *Store) ClearRoster() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = nil
}

func (s *Store) AddDetachment(d Detachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return ErrNoRoster
	}
	s.roster.Detachments = append(s.roster.Detachments, d)
	s.roster.Recompute()
	return nil
}

func (s *Store) RemoveDetachment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return ErrNoRoster
	}
	for i, d := range s.roster.Detachments {
		if d.ID == id {
			s.roster.Detachments = append(s.roster.Detachments[:i], s.roster.Detachments[i+1:]...)
			s.roster.Recompute()
			return nil
		}
	}
	return ErrDetachmentNotFound
}

func (s *Store) AddEntry(detachmentID string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.findDetachment(detachmentID)
	if err != nil {
		return err
	}
	d.Entries = append(d.Entries, e)
	s.roster.Recompute()
	return nil
}

func (s *Store) RemoveEntry(detachmentID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.findDetachment(detachmentID)
	if err != nil {
		return err
	}
	for i, e := range d.Entries {
		if e.ID == entryID {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			s.roster.Recompute()
			return nil
		}
	}
	return ErrEntryNotFound
}

// UpdateQuantity rewrites an entry's model count and recomputes its
// cost. Bounds against the unit's model min/max are the caller's
// concern; the authority enforces them for real.
func (s *Store) UpdateQuantity(detachmentID, entryID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.findDetachment(detachmentID)
	if err != nil {
		return err
	}
	for i := range d.Entries {
		if d.Entries[i].ID == entryID {
			d.Entries[i].Quantity = quantity
			s.roster.Recompute()
			return nil
		}
	}
	return ErrEntryNotFound
}

// SetValidation stores the authority's verdict. It does not validate.
func (s *Store) SetValidation(isValid bool, errs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return ErrNoRoster
	}
	s.roster.Validation = Validation{
		Known:   true,
		IsValid: isValid,
		Errors:  append([]string(nil), errs...),
	}
	return nil
}

func (s *Store) findDetachment(id string) (*Detachment, error) {
	if s.roster == nil {
		return nil, ErrNoRoster
	}
	for i := range s.roster.Detachments {
		if s.roster.Detachments[i].ID == id {
			return &s.roster.Detachments[i], nil
		}
	}
	return nil, ErrDetachmentNotFound
}
