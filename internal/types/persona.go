package types

// Persona is the accumulated set of identity-bearing field values (name, SSN,
// address, employer and the like) reused across samples of the same document
// so every variant describes one consistent applicant. Keys are
// human-readable labels. Once set, a key is never removed; a later merge may
// overwrite its value.
type Persona map[string]string

// Clone returns a shallow copy.
func (p Persona) Clone() Persona {
	out := make(Persona, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
