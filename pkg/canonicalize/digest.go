package canonicalize

// Digest returns the SHA-256 hex digest of the canonical JSON serialization
// of an argument list.
//
// Each argument is canonicalized with Value before the list is serialized, so
// two lists that are structurally equal after canonicalization (field order
// irrelevant, unexported fields excluded) digest identically. The digest is
// an opaque 64-character hex string.
func Digest(args []any) (string, error) {
	canonical := make([]any, len(args))
	for i, arg := range args {
		v, err := Value(arg)
		if err != nil {
			return "", err
		}
		canonical[i] = v
	}

	b, err := JCS(canonical)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}
