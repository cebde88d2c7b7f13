package middleware

// IsOwner reports whether userID is the configured owner account, which
// bypasses rate limits for personal use.
func IsOwner(userID, ownerUserID string) bool {
	return ownerUserID != "" && userID == ownerUserID
}
