package ports

// LinkSigner mints and validates the keyed-hash signatures embedded in
// download URLs. Implementations must compare in constant time and must fail
// closed when no secret is configured.
type LinkSigner interface {
	Sign(fields []string) (string, error)
	Verify(fields []string, candidate string) bool
}
